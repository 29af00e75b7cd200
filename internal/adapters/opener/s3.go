package opener

import (
	"context"
	"io"

	"quadra_financeiro/internal/adapters/tabular"
	"quadra_financeiro/internal/ports"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

type S3Client interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type S3Opener struct {
	Client S3Client
	Log    *zap.Logger
}

func NewS3Opener(cli S3Client, log *zap.Logger) *S3Opener {
	if log == nil {
		log = zap.NewNop()
	}
	return &S3Opener{Client: cli, Log: log}
}

func (s *S3Opener) Open(ctx context.Context, bucket, key string) (io.ReadCloser, ports.FileInfo, error) {
	log := s.Log.With(zap.String("bucket", bucket), zap.String("key", key))
	log.Info("[OPENER][S3][START]")
	st, err := s.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		log.Error("[OPENER][S3][ERR] stat", zap.Error(err))
		return nil, ports.FileInfo{}, tabular.ClassifyS3("s3 stat", err)
	}
	obj, err := s.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		log.Error("[OPENER][S3][ERR] get", zap.Error(err))
		return nil, ports.FileInfo{}, tabular.ClassifyS3("s3 get", err)
	}
	log.Info("[OPENER][S3][OK]", zap.String("content_type", st.ContentType), zap.Int64("size", st.Size), zap.String("etag", st.ETag))
	return obj, ports.FileInfo{
		Origin:      "s3",
		URL:         "s3://" + bucket + "/" + key,
		ContentType: st.ContentType,
		Size:        st.Size,
		Bucket:      bucket,
		Key:         key,
		ETag:        st.ETag,
	}, nil
}
