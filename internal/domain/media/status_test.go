package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_Valid(t *testing.T) {
	body := []byte(`{"status":"completed","download_url":"/download/abc","video_info":{"width":1080,"height":1920,"duration":12.5,"is_vertical":true,"has_audio":false},"processing_time":3.2}`)

	record, err := ParseStatus(body)
	require.NoError(t, err)
	assert.Equal(t, RemoteCompleted, record.Status)
	assert.Equal(t, "/download/abc", record.DownloadURL)
	require.NotNil(t, record.VideoInfo)
	assert.Equal(t, 1920, record.VideoInfo.Height)
	assert.True(t, record.VideoInfo.IsVertical)
	assert.InDelta(t, 3.2, record.ProcessingTime, 0.001)
}

func TestParseStatus_ProtocolErrors(t *testing.T) {
	bodies := map[string]string{
		"not json":                `<html>`,
		"missing status":          `{"download_url":"/x"}`,
		"unknown status":          `{"status":"queued"}`,
		"status wrong type":       `{"status":3}`,
		"completed without a url": `{"status":"completed"}`,
		"empty document":          ``,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStatus([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, &Error{Kind: KindProtocol}))
			assert.Equal(t, MsgUnknownStatus, err.Error())
		})
	}
}

func TestParseStatus_ErrorKeepsServerMessage(t *testing.T) {
	record, err := ParseStatus([]byte(`{"status":"error","error":"codec not supported"}`))
	require.NoError(t, err)
	assert.Equal(t, RemoteError, record.Status)
	assert.Equal(t, "codec not supported", record.Error)
}

func TestSanitizeUploadName(t *testing.T) {
	name, err := SanitizeUploadName(`C:\videos\my clip (1).MOV`)
	require.NoError(t, err)
	assert.Equal(t, "my_clip__1_.MOV", name)

	name, err = SanitizeUploadName("../../etc/stream.m2ts")
	require.NoError(t, err)
	assert.Equal(t, "stream.m2ts", name)

	_, err = SanitizeUploadName("notes.txt")
	assert.Error(t, err)

	_, err = SanitizeUploadName("   ")
	assert.Error(t, err)
}
