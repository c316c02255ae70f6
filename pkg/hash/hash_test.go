package hash

import "testing"

func TestSHA256Hex(t *testing.T) {
	// Known SHA256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	got := SHA256Hex("hello")
	if got != want {
		t.Errorf("SHA256Hex(\"hello\") = %s, want %s", got, want)
	}
}

func TestSHA256Hex_Empty(t *testing.T) {
	// SHA256 of empty string
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	got := SHA256Hex("")
	if got != want {
		t.Errorf("SHA256Hex(\"\") = %s, want %s", got, want)
	}
}

func TestSHA256HexBytes_MatchesString(t *testing.T) {
	if SHA256HexBytes([]byte("dQw4w9WgXcQ")) != SHA256Hex("dQw4w9WgXcQ") {
		t.Error("byte and string variants should agree")
	}
}

func TestBucket100_Range(t *testing.T) {
	inputs := []string{"", "UC123", "UCabcdef", "channel", "another-channel"}
	for _, in := range inputs {
		b := Bucket100(in)
		if b < 0 || b >= 100 {
			t.Errorf("Bucket100(%q) = %d, want [0, 100)", in, b)
		}
	}
}

func TestBucket100_Deterministic(t *testing.T) {
	if Bucket100("UCx") != Bucket100("UCx") {
		t.Error("Bucket100 should be deterministic")
	}
}
