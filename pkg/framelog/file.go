package framelog

import (
	"bufio"
	"os"
)

type bufferedFile struct {
	*bufio.Writer
	f *os.File
}

func (b *bufferedFile) Close() error {
	if err := b.Flush(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}

// Create truncates or creates the file at path and returns a FrameLog writing to it.
func Create(path string, opts ...Option) (*FrameLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bf := &bufferedFile{Writer: bufio.NewWriter(f), f: f}
	return New(append([]Option{WithWriter(bf), WithCloser(bf)}, opts...)...), nil
}

// Open returns a FrameLog reading the recording at path.
func Open(path string, opts ...Option) (*FrameLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithReader(bufio.NewReader(f)), WithCloser(f)}, opts...)...), nil
}
