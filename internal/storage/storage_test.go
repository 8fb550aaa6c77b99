package storage

import "testing"

func TestAssetKey(t *testing.T) {
	if got := AssetKey("abc", "f.png"); got != "boards/abc/f.png" {
		t.Fatalf("AssetKey = %q", got)
	}
	if got := BoardPrefix("abc"); got != "boards/abc/" {
		t.Fatalf("BoardPrefix = %q", got)
	}
}
