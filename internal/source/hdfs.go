package source

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/colinmarc/hdfs"
)

// HDFS reads job inputs from a Hadoop namenode.
type HDFS struct {
	client *hdfs.Client
}

// NewHDFS connects to the namenode at address (host:port).
func NewHDFS(address string) (*HDFS, error) {
	client, err := hdfs.New(address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hdfs %s: %w", address, err)
	}
	return &HDFS{client: client}, nil
}

func (h *HDFS) List(dir, reference, ext string) ([]string, error) {
	infos, err := h.client.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if eligible(info.Name(), reference, ext) {
			files = append(files, path.Join(dir, info.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (h *HDFS) Open(name string) (io.ReadCloser, error) {
	f, err := h.client.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (h *HDFS) Close() error {
	return h.client.Close()
}
