package resource

import (
	"os"

	"github.com/staminal/host/internal/staminalerr"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, staminalerr.Wrap(staminalerr.ResourceLoadFailed, err, "reading resource file")
	}
	return data, nil
}
