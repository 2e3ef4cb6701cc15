package services

import (
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/lumiere-bistro/tableside-api/utils"
)

// MockImageService is an in-memory ImageService for tests. It validates files
// the same way the real service does but stores nothing outside the process.
type MockImageService struct {
	mu      sync.Mutex
	counter int
	stored  map[string]string // key -> original filename

	// UploadErr / URLErr / DeleteErr force the corresponding call to fail
	UploadErr error
	URLErr    error
	DeleteErr error
}

// NewMockImageService creates an empty mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{stored: make(map[string]string)}
}

// UploadImage validates the file and records it under a deterministic key
func (m *MockImageService) UploadImage(fileHeader *multipart.FileHeader) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("menu-images/mock_%d_%s", m.counter, fileHeader.Filename)
	m.stored[key] = fileHeader.Filename
	return key, nil
}

// GetImageURL returns a fake URL for a stored key
func (m *MockImageService) GetImageURL(imageKey string) (string, error) {
	if m.URLErr != nil {
		return "", m.URLErr
	}
	if imageKey == "" {
		return "", nil
	}
	return "https://mock-storage.local/" + imageKey, nil
}

// DeleteImage forgets a stored key
func (m *MockImageService) DeleteImage(imageKey string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, imageKey)
	return nil
}

// Stored reports whether a key is currently held (for test assertions)
func (m *MockImageService) Stored(imageKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stored[imageKey]
	return ok
}
