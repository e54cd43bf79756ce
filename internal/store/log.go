package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rcliao/emergent-mind/internal/model"
)

// metaLog is the append-only metadata log.
type metaLog struct {
	path     string
	size     int64 // bytes of complete lines
	truncate func(name string, size int64) error
}

// readLog parses every complete line. A final line without a newline, or one
// that fails to decode, is treated as a torn write and excluded from size.
func readLog(path string) (*metaLog, []model.Record, error) {
	l := &metaLog{path: path, truncate: os.Truncate}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open log: %v", model.ErrStorage, err)
	}
	defer f.Close()

	var recs []model.Record
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// Anything left without a newline is a torn tail.
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read log: %v", model.ErrStorage, err)
		}

		var rec model.Record
		if jerr := json.Unmarshal(bytes.TrimSpace(line), &rec); jerr != nil {
			if _, perr := r.Peek(1); errors.Is(perr, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("%w: corrupt log line %d: %v", model.ErrStorage, len(recs)+1, jerr)
		}
		if !rec.Kind.Valid() {
			return nil, nil, fmt.Errorf("%w: log line %d has invalid kind %q", model.ErrStorage, len(recs)+1, rec.Kind)
		}
		recs = append(recs, rec)
		l.size += int64(len(line))
	}
	return l, recs, nil
}

// append writes one record and syncs it to disk. On failure the file is cut
// back to its previous length.
func (l *metaLog) append(rec model.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", model.ErrStorage, err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open log: %v", model.ErrStorage, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(line, l.size); err != nil {
		f.Truncate(l.size)
		return fmt.Errorf("%w: append log: %v", model.ErrStorage, err)
	}
	if err := f.Sync(); err != nil {
		f.Truncate(l.size)
		return fmt.Errorf("%w: sync log: %v", model.ErrStorage, err)
	}
	l.size += int64(len(line))
	return nil
}

// rollback cuts the log back to size bytes, undoing later appends.
func (l *metaLog) rollback(size int64) error {
	if err := l.truncate(l.path, size); err != nil {
		return fmt.Errorf("%w: roll back log: %v", model.ErrStorage, err)
	}
	l.size = size
	return nil
}

// rewrite replaces the log with recs through a temp file.
func (l *metaLog) rewrite(recs []model.Record) error {
	tmp := l.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create log: %v", model.ErrStorage, err)
	}

	w := bufio.NewWriter(f)
	var size int64
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("%w: encode record: %v", model.ErrStorage, err)
		}
		line = append(line, '\n')
		w.Write(line)
		size += int64(len(line))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: write log: %v", model.ErrStorage, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: sync log: %v", model.ErrStorage, err)
	}
	f.Close()

	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace log: %v", model.ErrStorage, err)
	}
	l.size = size
	return nil
}
