package content

import "testing"

func TestPublicMediaURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://cms.example.com/api/media/file/cover%20image.png", "/media/cover image.png"},
		{"/api/media/file/photo.jpg", "/media/photo.jpg"},
		{"/api/media/file/%C3%BCber.webp", "/media/über.webp"},
		{"/media/cover image.png", "/media/cover image.png"},
		{"https://images.example.com/a.png", "https://images.example.com/a.png"},
		{"", ""},
		{"/api/media/file/bad%zz.png", "/media/bad%zz.png"},
	}
	for _, tt := range tests {
		if got := PublicMediaURL(tt.input); got != tt.expected {
			t.Errorf("PublicMediaURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPublicMediaURLIdempotent(t *testing.T) {
	once := PublicMediaURL("https://cms.example.com/api/media/file/cover%20image.png")
	if twice := PublicMediaURL(once); twice != once {
		t.Errorf("second rewrite changed %q to %q", once, twice)
	}
}

func TestAPIMediaURL(t *testing.T) {
	got := APIMediaURL("https://cms.example.com/", "cover image.png")
	want := "https://cms.example.com/api/media/file/cover%20image.png"
	if got != want {
		t.Errorf("APIMediaURL = %q, want %q", got, want)
	}
}
