package kube

import "testing"

func TestComputeContentHash(t *testing.T) {
	if h := ComputeContentHash(nil); len(h) != 6 {
		t.Fatalf("expected 6 character hash for empty input, got %q", h)
	}

	a := ComputeContentHash(map[string]string{"mosquitto.conf": "listener 8883", "password.txt": "a:b"})
	b := ComputeContentHash(map[string]string{"password.txt": "a:b", "mosquitto.conf": "listener 8883"})
	if a != b {
		t.Errorf("hash must not depend on map order: %s vs %s", a, b)
	}
	c := ComputeContentHash(map[string]string{"mosquitto.conf": "listener 8883", "password.txt": "a:c"})
	if a == c {
		t.Errorf("hash must change with content")
	}
	// key/value boundaries are part of the hash
	d := ComputeContentHash(map[string]string{"ab": "c"})
	e := ComputeContentHash(map[string]string{"a": "bc"})
	if d == e {
		t.Errorf("hash must separate keys from values")
	}
}
