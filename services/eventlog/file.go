//go:build !tinygo

package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"labtrack-go/errcode"
	"labtrack-go/types"
)

// File appends one JSON object per line. The file is opened per write so a
// rotated log is picked up without a restart.
type File struct {
	Path string

	mu sync.Mutex
}

func (f *File) Handle(_ context.Context, ev types.GatewayEvent) error {
	line, err := json.Marshal(EntryOf(ev))
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, err := os.OpenFile(f.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &errcode.E{C: errcode.Error, Op: "eventlog.open", Err: err}
	}
	_, err = fd.Write(append(line, '\n'))
	if cerr := fd.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadAll returns the entries in a log file. Lines that do not decode are
// skipped.
func ReadAll(path string) ([]Entry, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	var out []Entry
	sc := bufio.NewScanner(fd)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) == nil {
			out = append(out, e)
		}
	}
	return out, sc.Err()
}
