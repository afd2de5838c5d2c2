package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVideo(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"clip.mp4", true},
		{"clip.MP4", true},
		{"holiday.mov", true},
		{"a/b/c.avi", true},
		{"x.mkv", true},
		{"x.WebM", true},
		{"photo.jpg", false},
		{"photo.jpeg", false},
		{"mp4", false},
		{"notes.mp4.txt", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVideo(tt.name))
		})
	}
}

func TestFolderHelpers(t *testing.T) {
	assert.True(t, InFolder("tree-pictures/a.jpg", DefaultTargetFolder))
	assert.False(t, InFolder("a.jpg", DefaultTargetFolder))
	assert.False(t, InFolder("other/tree-pictures/a.jpg", DefaultTargetFolder))

	assert.Equal(t, "tree-pictures/a.jpg", FolderKey(DefaultTargetFolder, "a.jpg"))
	assert.Equal(t, "tree-pictures/c.jpg", FolderKey(DefaultTargetFolder, "uploads/b/c.jpg"))
	assert.Equal(t, "c.jpg", BaseName("uploads/b/c.jpg"))
}

func TestNormalizeFolder(t *testing.T) {
	assert.Equal(t, DefaultTargetFolder, NormalizeFolder(""))
	assert.Equal(t, "cats/", NormalizeFolder("cats"))
	assert.Equal(t, "cats/", NormalizeFolder("/cats/"))
}
