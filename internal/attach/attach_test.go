package attach

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/chathub/internal/domain"
)

func TestValidateRejectsLargeFiles(t *testing.T) {
	err := Validate(File{Name: "huge.png", Size: DefaultMaxSize + 1}, 0)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, "File size must be less than 10 MB", err.Error())

	require.NoError(t, Validate(File{Name: "exact.png", Size: DefaultMaxSize}, 0))
}

func TestValidateRejectsUnknownExtensions(t *testing.T) {
	for _, name := range []string{"script.exe", "archive.tar.gz", "README"} {
		err := Validate(File{Name: name, Size: 10}, DefaultMaxSize)
		require.ErrorIs(t, err, ErrUnsupportedType, name)
		assert.Equal(t,
			"File type not supported. Allowed types: .jpg, .jpeg, .png, .gif, .webp, .pdf, .txt, .doc, .docx",
			err.Error())
	}
	require.NoError(t, Validate(File{Name: "Photo.JPG", Size: 10}, DefaultMaxSize))
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:                "0 Bytes",
		512:              "512 Bytes",
		1024:             "1 KB",
		1536:             "1.5 KB",
		10 * 1024 * 1024: "10 MB",
		1288490189:       "1.2 GB",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormatSize(n), "FormatSize(%d)", n)
	}
}

func TestOpenDerivesMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diagram.png")
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "diagram.png", f.Name)
	assert.Equal(t, int64(16), f.Size)
	assert.Equal(t, "image/png", f.Type)
	assert.Equal(t, domain.KindImage, KindFor(f))
	assert.Equal(t, "Shared an image: diagram.png", Announcement(f))

	_, err = Open(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	_, err = Open(dir)
	require.Error(t, err)
}

func TestKindForNonImages(t *testing.T) {
	f := File{Name: "notes.pdf", Type: TypeFor("notes.pdf")}
	assert.Equal(t, "application/pdf", f.Type)
	assert.Equal(t, domain.KindFile, KindFor(f))
	assert.Equal(t, "Shared a file: notes.pdf", Announcement(f))
	assert.Equal(t, "application/octet-stream", TypeFor("blob.unknownext"))
}
