package services

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatdocs-rag/internal/logger"
)

// FileStorageManager keeps raw uploaded documents on local disk, one
// directory per folder id (conversation or category). It implements the
// FileStore collaborator consumed by the LifecycleBinder.
type FileStorageManager struct {
	uploadDir string
	tempDir   string
	maxSize   int64
}

func NewFileStorageManager(baseDir string, maxSize int64) *FileStorageManager {
	if baseDir == "" {
		baseDir = "./storage"
	}

	uploadDir := filepath.Join(baseDir, "documents")
	tempDir := filepath.Join(baseDir, "temp")

	os.MkdirAll(uploadDir, 0755)
	os.MkdirAll(tempDir, 0755)

	return &FileStorageManager{
		uploadDir: uploadDir,
		tempDir:   tempDir,
		maxSize:   maxSize,
	}
}

// StoredFileInfo describes a securely stored file.
type StoredFileInfo struct {
	Path       string
	SecureName string
	Hash       string
	Size       int64
}

// Store streams an upload into the folder's directory under a generated
// name. The file lands in a temp location first and is renamed into place,
// so readers never observe a partial write.
func (sm *FileStorageManager) Store(file io.Reader, originalName, folderID string) (*StoredFileInfo, error) {
	if err := validateFilename(originalName); err != nil {
		return nil, err
	}

	secureName := sm.generateSecureFilename(originalName)

	folderDir := filepath.Join(sm.uploadDir, folderID)
	if err := os.MkdirAll(folderDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder directory: %w", err)
	}
	finalPath := filepath.Join(folderDir, secureName)

	tempPath := filepath.Join(sm.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	// Hash while streaming so dedup never re-reads the file
	hasher := md5.New()
	reader := io.Reader(file)
	if sm.maxSize > 0 {
		reader = io.LimitReader(file, sm.maxSize+1)
	}
	bytesWritten, err := io.Copy(io.MultiWriter(tempFile, hasher), reader)
	if err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	if bytesWritten == 0 {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file is empty")
	}
	if sm.maxSize > 0 && bytesWritten > sm.maxSize {
		os.Remove(tempPath)
		return nil, fmt.Errorf("file exceeds maximum allowed size %d", sm.maxSize)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	return &StoredFileInfo{
		Path:       finalPath,
		SecureName: secureName,
		Hash:       hex.EncodeToString(hasher.Sum(nil)),
		Size:       bytesWritten,
	}, nil
}

// DeleteFilesByFolder removes every file stored under the folder id and the
// directory itself. A missing folder counts as zero deletions, not an error.
func (sm *FileStorageManager) DeleteFilesByFolder(folderID string) (int, error) {
	if folderID == "" || strings.Contains(folderID, "..") {
		return 0, fmt.Errorf("invalid folder id %q", folderID)
	}

	folderDir := filepath.Join(sm.uploadDir, folderID)
	entries, err := os.ReadDir(folderDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read folder %s: %w", folderID, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		count++
	}

	if err := os.RemoveAll(folderDir); err != nil {
		return 0, fmt.Errorf("failed to remove folder %s: %w", folderID, err)
	}
	return count, nil
}

// Cleanup removes a single stored file, logging rather than failing.
func (sm *FileStorageManager) Cleanup(filePath string) {
	if filePath != "" {
		if err := os.Remove(filePath); err != nil {
			logger.Warn("Failed to cleanup file", "path", filePath, "error", err)
		}
	}
}

func validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	if len(filename) > 255 {
		return fmt.Errorf("filename too long (max 255 characters)")
	}

	dangerous := []string{"../", "..\\", "<", ">", ":", "\"", "|", "?", "*", "\x00"}
	for _, char := range dangerous {
		if strings.Contains(filename, char) {
			return fmt.Errorf("filename contains invalid or dangerous characters")
		}
	}
	return nil
}

func (sm *FileStorageManager) generateSecureFilename(originalName string) string {
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)
	randomPrefix := hex.EncodeToString(randomBytes)

	timestamp := time.Now().Format("20060102_150405")

	ext := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(originalName, ext)
	safeName := strings.ReplaceAll(baseName, " ", "_")
	safeName = strings.ReplaceAll(safeName, "..", "")
	if len(safeName) > 50 {
		safeName = safeName[:50]
	}

	return fmt.Sprintf("%s_%s_%s%s", timestamp, randomPrefix, safeName, ext)
}
