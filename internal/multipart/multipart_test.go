package multipart

import (
	"bytes"
	"io"
	mp "mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackhouse/service/internal/apperr"
)

type partSpec struct {
	field    string
	filename string // empty for text fields
	content  string
}

func newRequest(t *testing.T, parts []partSpec) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := mp.NewWriter(&body)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, writer.WriteField(p.field, p.content))
			continue
		}
		fw, err := writer.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, p.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestParseCollectsDeclaredFileAndTextFields(t *testing.T) {
	req := newRequest(t, []partSpec{
		{field: "name", content: "v1"},
		{field: "projectFiles", filename: "mix.als", content: "archive-bytes"},
		{field: "stray", filename: "virus.exe", content: "drained but dropped"},
	})

	form, err := Parse(req, "projectFiles")
	require.NoError(t, err)

	assert.Equal(t, "v1", form.Value("name"))
	assert.True(t, form.HasValue("name"))
	assert.False(t, form.HasValue("missing"))

	file, err := form.RequireFile("projectFiles")
	require.NoError(t, err)
	assert.Equal(t, "mix.als", file.Filename)
	assert.Equal(t, []byte("archive-bytes"), file.Data)

	// undeclared file fields are drained, not captured
	stray, err := form.File("stray")
	require.NoError(t, err)
	assert.Nil(t, stray)
}

func TestRequireFileZeroParts(t *testing.T) {
	req := newRequest(t, []partSpec{{field: "title", content: "demo"}})

	form, err := Parse(req, "preview")
	require.NoError(t, err)

	_, err = form.RequireFile("preview")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRequireFileTwoParts(t *testing.T) {
	req := newRequest(t, []partSpec{
		{field: "preview", filename: "a.mp3", content: "a"},
		{field: "preview", filename: "b.mp3", content: "b"},
	})

	form, err := Parse(req, "preview")
	require.NoError(t, err)

	_, err = form.RequireFile("preview")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = form.File("preview")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestOptionalFileAbsentIsNil(t *testing.T) {
	req := newRequest(t, []partSpec{{field: "name", content: "tika"}})

	form, err := Parse(req, "coverArt")
	require.NoError(t, err)

	file, err := form.File("coverArt")
	require.NoError(t, err)
	assert.Nil(t, file)
}

func TestParseRejectsNonMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	_, err := Parse(req, "coverArt")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
