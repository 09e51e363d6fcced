package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedDispatchShortCircuit(t *testing.T) {
	b := New(1024)
	var calledB, calledC bool

	filter := &Filter{Protocol: ProtocolAny, RoutePrefix: "/x"}
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		resp.Write([]byte("hi"))
		resp.SetStatus(200)
		resp.SetHandled(true)
		return nil
	}, 10, filter)
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		calledB = true
		return nil
	}, 20, filter)
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		calledC = true
		return nil
	}, 30, filter)

	result := b.Dispatch(Event{Kind: RequestURI}, &Request{Protocol: ProtocolAny, Path: "/x"})

	assert.False(t, calledB)
	assert.False(t, calledC)
	assert.Equal(t, uint16(200), result.Status)
	assert.Equal(t, "hi", string(result.Body))
	assert.Equal(t, "", result.Filepath)
}

func TestHandlerExceptionStopsChain(t *testing.T) {
	b := New(1024)
	var calledB bool
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		resp.Write([]byte("partial"))
		return errors.New("boom")
	}, 1, nil)
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		calledB = true
		return nil
	}, 2, nil)

	result := b.Dispatch(Event{Kind: RequestURI}, &Request{Protocol: ProtocolAny, Path: "/y"})

	assert.False(t, calledB)
	assert.Equal(t, uint16(500), result.Status)
	assert.Equal(t, "", result.Filepath)
	assert.Empty(t, result.Body)
}

func TestFilterMismatchSkipsHandler(t *testing.T) {
	b := New(1024)
	var called bool
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		called = true
		return nil
	}, 1, &Filter{Protocol: ProtocolStam, RoutePrefix: "/admin"})

	result := b.Dispatch(Event{Kind: RequestURI}, &Request{Protocol: ProtocolHttp, Path: "/admin/x"})

	assert.False(t, called)
	assert.Equal(t, uint16(404), result.Status)
}

func TestEmptyRoutePrefixMatchesAnyPath(t *testing.T) {
	b := New(1024)
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		resp.SetStatus(200)
		resp.SetHandled(true)
		return nil
	}, 1, &Filter{Protocol: ProtocolAny, RoutePrefix: ""})

	result := b.Dispatch(Event{Kind: RequestURI}, &Request{Protocol: ProtocolAny, Path: "/anything"})
	assert.Equal(t, uint16(200), result.Status)
}

func TestSettingStatusDoesNotImplyHandled(t *testing.T) {
	b := New(1024)
	var secondCalled bool
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		resp.SetStatus(200)
		return nil
	}, 1, nil)
	b.Register(Event{Kind: RequestURI}, func(req *Request, resp *Response) error {
		secondCalled = true
		resp.SetHandled(true)
		return nil
	}, 2, nil)

	b.Dispatch(Event{Kind: RequestURI}, &Request{Protocol: ProtocolAny, Path: "/z"})
	assert.True(t, secondCalled)
}

func TestCustomEventDispatch(t *testing.T) {
	b := New(1024)
	var fired bool
	b.Register(Event{Kind: Custom, Name: "player.spawned"}, func(req *Request, resp *Response) error {
		fired = true
		return nil
	}, 0, nil)

	b.Dispatch(Event{Kind: Custom, Name: "player.spawned"}, &Request{})
	assert.True(t, fired)
}

func TestSameHandlerRegisteredTwiceGetsDistinctIDs(t *testing.T) {
	b := New(1024)
	h := func(req *Request, resp *Response) error { return nil }
	id1 := b.Register(Event{Kind: AppStart}, h, 0, nil)
	id2 := b.Register(Event{Kind: AppStart}, h, 0, nil)
	assert.NotEqual(t, id1, id2)
}

func TestRemoveByID(t *testing.T) {
	b := New(1024)
	var called bool
	id := b.Register(Event{Kind: AppStart}, func(req *Request, resp *Response) error {
		called = true
		return nil
	}, 0, nil)
	b.Remove(Event{Kind: AppStart}, id)
	b.Dispatch(Event{Kind: AppStart}, &Request{})
	assert.False(t, called)
}
