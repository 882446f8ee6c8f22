package api

import (
	"github.com/OCAP2/facecsv/pkg/core"
)

// Archive uploads every exported CSV. It implements storage.Backend.
type Archive struct {
	client *Client
	tag    string
}

// NewArchive wraps c; tag is sent with every upload.
func NewArchive(c *Client, tag string) *Archive {
	return &Archive{client: c, tag: tag}
}

// Name implements storage.Named.
func (a *Archive) Name() string {
	return "upload"
}

// Init verifies the frontend is reachable.
func (a *Archive) Init() error {
	return a.client.Healthcheck()
}

func (a *Archive) Close() error {
	return nil
}

// StoreRecording uploads the file the recording was written to.
func (a *Archive) StoreRecording(rec *core.Recording) error {
	return a.client.Upload(rec.FilePath, MetadataFor(rec, a.tag))
}

// MetadataFor summarizes rec for the upload form.
func MetadataFor(rec *core.Recording, tag string) core.UploadMetadata {
	return core.UploadMetadata{
		Subject:      rec.Subject,
		FrameCount:   len(rec.Frames),
		Duration:     rec.Duration().Seconds(),
		PropertyKeys: len(rec.ColumnNames),
		Tag:          tag,
	}
}
