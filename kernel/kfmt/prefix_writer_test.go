package kfmt

import (
	"bytes"
	"errors"
	"testing"
)

func TestPrefixWriter(t *testing.T) {
	specs := []struct {
		input []string
		exp   string
	}{
		{
			[]string{""},
			"",
		},
		{
			[]string{"\n"},
			"[pmm] \n",
		},
		{
			[]string{"reserved pool at 0x10000"},
			"[pmm] reserved pool at 0x10000",
		},
		{
			[]string{"free frames: 32\n"},
			"[pmm] free frames: 32\n",
		},
		{
			[]string{"\nregion 0\nregion 1\nregion 2"},
			"[pmm] \n[pmm] region 0\n[pmm] region 1\n[pmm] region 2",
		},
		{
			// a line split across two writes gets a single prefix
			[]string{"usable: ", "128Mb\n", "done"},
			"[pmm] usable: 128Mb\n[pmm] done",
		},
	}

	var buf bytes.Buffer

	for specIndex, spec := range specs {
		buf.Reset()
		w := PrefixWriter{Sink: &buf, Prefix: []byte("[pmm] ")}

		for _, input := range spec.input {
			wrote, err := w.Write([]byte(input))
			if err != nil {
				t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			}

			if expLen := len(input); expLen != wrote {
				t.Errorf("[spec %d] expected writer to write %d bytes; wrote %d", specIndex, expLen, wrote)
			}
		}

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected output:\n%q\ngot:\n%q", specIndex, spec.exp, got)
		}
	}
}

func TestPrefixWriterErrors(t *testing.T) {
	specs := []string{
		"no line break anywhere",
		"\nfirst\nsecond\nthird",
	}

	expErr := errors.New("write failed")

	for specIndex, spec := range specs {
		w := PrefixWriter{
			Sink:   failingWriter{expErr},
			Prefix: []byte("[amc] "),
		}
		if _, err := w.Write([]byte(spec)); err != expErr {
			t.Errorf("[spec %d] expected error: %v; got %v", specIndex, expErr, err)
		}
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write(_ []byte) (int, error) {
	return 0, w.err
}
