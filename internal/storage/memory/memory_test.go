package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelkov/account-service/internal/storage"
)

func TestStorage_UploadAndDelete(t *testing.T) {
	s := New("http://localhost:8084/media/")

	res, err := s.Upload(context.Background(), storage.File{
		Name:    "avatar.png",
		Content: strings.NewReader("imagedata"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Equal(t, "http://localhost:8084/media/"+res.Key, res.URL)

	data, ok := s.Get(res.Key)
	require.True(t, ok)
	assert.Equal(t, "imagedata", string(data))

	require.NoError(t, s.Delete(context.Background(), res.Key))
	_, ok = s.Get(res.Key)
	assert.False(t, ok)

	// Deleting again is not an error.
	assert.NoError(t, s.Delete(context.Background(), res.Key))
}
