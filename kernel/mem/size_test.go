package mem

import "testing"

func TestSizePages(t *testing.T) {
	specs := []struct {
		size     Size
		expPages uint64
		expAlign Size
	}{
		{0, 0, 0},
		{1, 1, PageSize},
		{PageSize, 1, PageSize},
		{PageSize + 1, 2, 2 * PageSize},
		{0x4000, 4, 0x4000},
		{128 * Mb, 32768, 128 * Mb},
	}

	for specIndex, spec := range specs {
		if got := spec.size.Pages(); got != spec.expPages {
			t.Errorf("[spec %d] expected Pages() to return %d; got %d", specIndex, spec.expPages, got)
		}

		if got := spec.size.PageAlignUp(); got != spec.expAlign {
			t.Errorf("[spec %d] expected PageAlignUp() to return %d; got %d", specIndex, spec.expAlign, got)
		}
	}
}

func TestSizeString(t *testing.T) {
	specs := []struct {
		size Size
		exp  string
	}{
		{0, "0b"},
		{17, "17b"},
		{4 * Kb, "4Kb"},
		{0x1c000, "112Kb"},
		{128 * Mb, "128Mb"},
		{2 * Gb, "2Gb"},
	}

	for specIndex, spec := range specs {
		if got := spec.size.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestAlign(t *testing.T) {
	specs := []struct {
		addr           uint64
		expUp, expDown uint64
	}{
		{0, 0, 0},
		{0x1, 0x1000, 0x0},
		{0x9fc00, 0xa0000, 0x9f000},
		{0x100000, 0x100000, 0x100000},
	}

	for specIndex, spec := range specs {
		if got := AlignUp(spec.addr); got != spec.expUp {
			t.Errorf("[spec %d] expected AlignUp(0x%x) to return 0x%x; got 0x%x", specIndex, spec.addr, spec.expUp, got)
		}
		if got := AlignDown(spec.addr); got != spec.expDown {
			t.Errorf("[spec %d] expected AlignDown(0x%x) to return 0x%x; got 0x%x", specIndex, spec.addr, spec.expDown, got)
		}
	}
}
