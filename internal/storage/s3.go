package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"

	"github.com/local/vitanote/internal/config"
	"github.com/local/vitanote/internal/domain"
)

const (
	gcmMagic   = "GCM3NCR0"
	pbkdf2Iter = 100000
)

type uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Archive keeps a copy of every rendered report in S3 so downloads survive
// a lost local disk. Objects are AES-GCM encrypted when a password is set.
type Archive struct {
	uploader uploader
	objects  objectAPI
	bucket   string
	prefix   string
	password string
}

// NewArchive builds an archive from storage config. Static credentials are
// used when both keys are set, otherwise the default AWS chain.
func NewArchive(ctx context.Context, cfg config.StorageConfig) (*Archive, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, "")))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg)
	return newArchive(manager.NewUploader(cli), cli, cfg), nil
}

func newArchive(up uploader, objects objectAPI, cfg config.StorageConfig) *Archive {
	return &Archive{
		uploader: up,
		objects:  objects,
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		password: cfg.ArchivePassword,
	}
}

func (a *Archive) key(name string) string { return path.Join(a.prefix, name) }

// Put uploads a report under its filename.
func (a *Archive) Put(ctx context.Context, name string, data []byte) error {
	body := data
	meta := map[string]string{"name": name, "encrypted": "false"}
	if a.password != "" {
		sealed, err := seal(data, a.password)
		if err != nil {
			return fmt.Errorf("failed to encrypt report: %w", err)
		}
		body = sealed
		meta["encrypted"] = "true"
		meta["encryption-format"] = gcmMagic
	}

	key := a.key(name)
	out, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/pdf"),
		Metadata:    meta,
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("report archive upload failed")
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Info().Str("key", key).Str("location", out.Location).Bool("encrypted", a.password != "").Msg("report archived to S3")
	return nil
}

// Get downloads and decrypts a report. A missing object is ErrNotFound.
func (a *Archive) Get(ctx context.Context, name string) ([]byte, error) {
	key := a.key(name)
	res, err := a.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, domain.WrapError(domain.ErrNotFound, "archive get "+name, err)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	if res.Metadata["encrypted"] != "true" {
		return data, nil
	}
	plain, err := open(data, a.password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt report: %w", err)
	}
	log.Debug().Str("key", key).Int("size", len(plain)).Msg("report restored from S3")
	return plain, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (a *Archive) Ping(ctx context.Context) error {
	_, err := a.objects.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	return err
}

// seal encrypts data as magic(8) + salt(16) + nonce(12) + ciphertext+tag.
func seal(data []byte, password string) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(gcmMagic)+len(salt)+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, gcmMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

func open(data []byte, password string) ([]byte, error) {
	if len(data) < 8+16+12+16 {
		return nil, fmt.Errorf("GCM data too short: %d bytes", len(data))
	}
	if string(data[:8]) != gcmMagic {
		return nil, fmt.Errorf("unknown encryption format %q", data[:8])
	}
	salt := data[8:24]
	nonce := data[24:36]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, data[36:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plain, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iter, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
