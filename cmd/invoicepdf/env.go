package main

import (
	"io"
	"os"

	invoicepdf "github.com/alnah/go-invoicepdf"
	"github.com/alnah/go-invoicepdf/internal/server"
)

// Pool lends exporters to commands and owns their browsers.
type Pool interface {
	server.Provider
	Size() int
	Close() error
}

// PoolFactory builds a Pool of size exporters publishing previews to blobs.
type PoolFactory func(size int, blobs *invoicepdf.BlobStore, opts ...invoicepdf.Option) Pool

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout  io.Writer
	Stderr  io.Writer
	NewPool PoolFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		NewPool: newExporterPool,
	}
}

// exporterPool adapts *invoicepdf.ExporterPool to Pool.
type exporterPool struct {
	server.Provider
	pool *invoicepdf.ExporterPool
}

func newExporterPool(size int, blobs *invoicepdf.BlobStore, opts ...invoicepdf.Option) Pool {
	p := invoicepdf.NewExporterPool(size, blobs, opts...)
	return &exporterPool{Provider: server.FromPool(p), pool: p}
}

func (p *exporterPool) Size() int    { return p.pool.Size() }
func (p *exporterPool) Close() error { return p.pool.Close() }

// Compile-time interface checks.
var (
	_ Pool            = (*exporterPool)(nil)
	_ server.Exporter = (*invoicepdf.Exporter)(nil)
)
