package gelly

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// makeLargePage builds a template big enough for parse/compile/render costs
// to show up clearly in the benchmark.
func makeLargePage() string {
	var b strings.Builder
	b.WriteString(`<html><body><ul>`)
	for i := 0; i < 50; i++ {
		b.WriteString(`<li class="row">item ${n} of <b>page ${title}</b></li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func benchScope() *Scope {
	s := NewScope(nil)
	s.Set("n", Int(7))
	s.Set("title", String("benchmark"))
	return s
}

// Render with a warm compilation cache (concurrent-safe).
func Benchmark_Render_Cached(b *testing.B) {
	e := NewFS(fstest.MapFS{
		"big.gelly": &fstest.MapFile{Data: []byte(makeLargePage())},
	})
	_, err := e.Template("big")
	require.NoError(b, err)

	scope := benchScope()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		var buf bytes.Buffer
		for pb.Next() {
			buf.Reset()
			if err := e.Render(context.Background(), &buf, "big", scope); err != nil {
				b.Fatalf("render failed: %v", err)
			}
		}
	})
}

// Parse and compile from scratch each run.
func Benchmark_Compile(b *testing.B) {
	raw := []byte(makeLargePage())
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e := NewFS(fstest.MapFS{
			"big.gelly": &fstest.MapFile{Data: raw},
		})
		if _, err := e.Template("big"); err != nil {
			b.Fatalf("compile failed: %v", err)
		}
	}
}
