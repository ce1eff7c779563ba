package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s", got)
	}
}

func TestShort(t *testing.T) {
	if got := Short([]byte("abc"), 12); got != "ba7816bf8f01" {
		t.Errorf("Short = %s", got)
	}
	if got := Short([]byte("abc"), 0); len(got) != 64 {
		t.Errorf("Short(0) length = %d", len(got))
	}
}

func TestMatches(t *testing.T) {
	data := []byte("---\nstatus: planned\n---\n")
	if !Matches(data, Sum(data)) {
		t.Error("digest of data should match")
	}
	if Matches(data, "stale") || Matches([]byte("other"), Sum(data)) {
		t.Error("mismatch reported as match")
	}
}
