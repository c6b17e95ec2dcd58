package entry

import "testing"

func TestClassifyMIME(t *testing.T) {
	cases := []struct {
		mime string
		want ContentType
		ok   bool
	}{
		{"text/plain;charset=utf-8", Text, true},
		{"text/plain", Text, true},
		{"text/html", Text, true},
		{"image/png", Image, true},
		{"image/jpeg", Image, true},
		{"image/webp", Image, true},
		{"image/bmp", Image, true},
		{"image/tiff", Image, true},
		{"image/gif", "", false},
		{"application/octet-stream", "", false},
	}
	for _, c := range cases {
		got, ok := ClassifyMIME(c.mime)
		if ok != c.ok || got != c.want {
			t.Errorf("ClassifyMIME(%q) = (%q, %v), want (%q, %v)", c.mime, got, ok, c.want, c.ok)
		}
	}
}

func TestHashHex(t *testing.T) {
	h := HashHex([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if h != want {
		t.Errorf("HashHex = %q, want %q", h, want)
	}
}

func TestPreviewText(t *testing.T) {
	p := Preview(Text, "text/plain", []byte("hello\nworld"))
	if p != "hello world" {
		t.Errorf("Preview = %q", p)
	}
}

func TestPreviewTextTruncates(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	p := Preview(Text, "text/plain", long)
	if len(p) != textPreviewMaxRunes {
		t.Errorf("len(Preview) = %d, want %d", len(p), textPreviewMaxRunes)
	}
}

func TestPreviewImage(t *testing.T) {
	p := Preview(Image, "image/png", make([]byte, 1024))
	want := "[Image: image/png, 1024 B]"
	if p != want {
		t.Errorf("Preview = %q, want %q", p, want)
	}
}
