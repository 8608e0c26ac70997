package micbench

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

type (
	CompletionRecord struct {
		Submitted time.Time
		Completed time.Time
		Path      string
		Offset    int64
		Size      int
	}

	// CompletionLogger writes one tab separated line per completed operation:
	//
	//	submit_us complete_us submit_rel_us latency_sec path offset size
	//
	// Timestamps are microseconds since the epoch, submit_rel_us is relative to the first
	// record this logger saw. A nil *CompletionLogger discards everything. Safe for
	// concurrent use.
	CompletionLogger struct {
		mtx     sync.Mutex
		w       *bufio.Writer
		c       io.Closer
		base    int64
		started bool
		scratch []byte
		err     error
	}
)

// CreateCompletionLog truncates (or creates) path and logs to it.
func CreateCompletionLog(path string) (*CompletionLogger, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	l := NewCompletionLogger(f)
	l.c = f
	return l, nil
}

func NewCompletionLogger(w io.Writer) *CompletionLogger {
	return &CompletionLogger{
		w:       bufio.NewWriterSize(w, 64*1024),
		scratch: make([]byte, 0, 256),
	}
}

func (l *CompletionLogger) Log(rec CompletionRecord) {
	if l == nil {
		return
	}
	sub := rec.Submitted.UnixMicro()
	done := rec.Completed.UnixMicro()

	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.err != nil {
		return
	}
	if !l.started {
		l.base = sub
		l.started = true
	}
	b := l.scratch[:0]
	b = strconv.AppendInt(b, sub, 10)
	b = append(b, '\t')
	b = strconv.AppendInt(b, done, 10)
	b = append(b, '\t')
	b = strconv.AppendInt(b, sub-l.base, 10)
	b = append(b, '\t')
	b = strconv.AppendFloat(b, rec.Completed.Sub(rec.Submitted).Seconds(), 'f', 6, 64)
	b = append(b, '\t')
	b = append(b, rec.Path...)
	b = append(b, '\t')
	b = strconv.AppendInt(b, rec.Offset, 10)
	b = append(b, '\t')
	b = strconv.AppendInt(b, int64(rec.Size), 10)
	b = append(b, '\n')
	_, l.err = l.w.Write(b)
	l.scratch = b
}

// Err is the first write error, after which the logger drops records.
func (l *CompletionLogger) Err() error {
	if l == nil {
		return nil
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.err
}

func (l *CompletionLogger) Flush() error {
	if l == nil {
		return nil
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.err != nil {
		return l.err
	}
	l.err = l.w.Flush()
	return l.err
}

func (l *CompletionLogger) Close() error {
	if l == nil {
		return nil
	}
	err := l.Flush()
	if l.c != nil {
		if cerr := l.c.Close(); err == nil {
			err = cerr
		}
		l.c = nil
	}
	return err
}
