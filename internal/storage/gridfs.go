package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultContentType = "application/octet-stream"

// GridFSStore stores blobs in a MongoDB GridFS bucket keyed by filename.
type GridFSStore struct {
	db     *mongo.Database
	bucket *gridfs.Bucket
}

// NewGridFSStore opens the named bucket.
func NewGridFSStore(db *mongo.Database, bucketName string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}
	return &GridFSStore{db: db, bucket: bucket}, nil
}

func (s *GridFSStore) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	stream, err := s.bucket.OpenUploadStream(path, opts)
	if err != nil {
		return err
	}
	if _, err := io.Copy(stream, body); err != nil {
		_ = stream.Abort()
		return err
	}
	return stream.Close()
}

func (s *GridFSStore) Open(ctx context.Context, path string) (io.ReadCloser, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	stream, err := s.bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}

	file := stream.GetFile()
	obj := Object{Path: path, ContentType: defaultContentType, Size: file.Length}
	if file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			obj.ContentType = ct
		}
	}
	return stream, obj, nil
}

// Delete removes every revision stored under path.
func (s *GridFSStore) Delete(ctx context.Context, path string) error {
	cursor, err := s.bucket.Find(bson.D{{Key: "filename", Value: path}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var files []gridfs.File
	if err := cursor.All(ctx, &files); err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNotFound
	}
	for _, f := range files {
		if err := s.bucket.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return err
		}
	}
	return nil
}

func (s *GridFSStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}
