package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrUnsupportedImage = errors.New("format d'image non supporté (jpeg, png, webp, gif)")

// Types acceptés et extension du fichier stocké
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// Storage enregistre les images produits et retourne leur URL publique.
// contentType est le type détecté par DetectImage, jamais celui du client.
type Storage interface {
	Save(ctx context.Context, r io.Reader, size int64, contentType string) (string, error)
}

// DetectImage vérifie l'extension du nom envoyé puis le contenu réel du
// fichier, et retourne le type MIME détecté. r est rembobiné.
func DetectImage(filename string, r io.ReadSeeker) (string, error) {
	if !imageExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", ErrUnsupportedImage
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("lecture image: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("lecture image: %w", err)
	}

	contentType := http.DetectContentType(head[:n])
	if _, ok := imageTypes[contentType]; !ok {
		return "", ErrUnsupportedImage
	}
	return contentType, nil
}

// ObjectName génère un nom unique, l'extension suit le type détecté.
func ObjectName(contentType string) (string, error) {
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}
	return "products/" + uuid.NewString() + ext, nil
}

// DiskStorage écrit sous dir, servi par le routeur sous publicPrefix.
type DiskStorage struct {
	dir          string
	publicPrefix string
}

func NewDiskStorage(dir, publicPrefix string) (*DiskStorage, error) {
	if err := os.MkdirAll(filepath.Join(dir, "products"), 0o755); err != nil {
		return nil, fmt.Errorf("dossier uploads: %w", err)
	}
	return &DiskStorage{dir: dir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

func (d *DiskStorage) Dir() string {
	return d.dir
}

func (d *DiskStorage) Save(_ context.Context, r io.Reader, _ int64, contentType string) (string, error) {
	name, err := ObjectName(contentType)
	if err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(d.dir, filepath.FromSlash(name)))
	if err != nil {
		return "", fmt.Errorf("création fichier: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("écriture fichier: %w", err)
	}
	return d.publicPrefix + "/" + name, nil
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL préfixe les URLs retournées ; par défaut le endpoint.
	PublicURL string
}

type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// ConnectMinIO ouvre le client et crée le bucket au besoin.
func ConnectMinIO(ctx context.Context, cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	log.Println("✅ Connecté à MinIO :", cfg.Endpoint)
	return &MinIOStorage{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (m *MinIOStorage) Save(ctx context.Context, r io.Reader, size int64, contentType string) (string, error) {
	name, err := ObjectName(contentType)
	if err != nil {
		return "", err
	}
	_, err = m.client.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload MinIO: %w", err)
	}
	return m.publicURL + "/" + path.Join(m.bucket, name), nil
}
