package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
)

// AzureStore keeps chat record snapshots and dashboard exports in Azure Blob
// Storage, authenticated through managed identity.
type AzureStore struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureStore implements Store
var _ Store = (*AzureStore)(nil)

// NewAzureStore creates the blob client and makes sure the container exists.
func NewAzureStore(accountName, containerName string) (*AzureStore, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	store := &AzureStore{client: client, containerName: containerName}
	if err := store.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}
	return store, nil
}

func (s *AzureStore) ensureContainer() error {
	_, err := s.client.CreateContainer(context.Background(), s.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", s.containerName)
		return nil
	}
	logrus.Infof("Created container %s", s.containerName)
	return nil
}

// Put uploads a snapshot, overwriting any previous version.
func (s *AzureStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.containerName, name, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	logrus.Debugf("Stored snapshot %s (%d bytes)", name, len(data))
	return nil
}

// Get downloads a snapshot.
func (s *AzureStore) Get(ctx context.Context, name string) ([]byte, error) {
	response, err := s.client.DownloadStream(ctx, s.containerName, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}
	return data, nil
}

// List returns the snapshots under a prefix with their last-modified times,
// which the retention sweep uses to find expired entries.
func (s *AzureStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	pager := s.client.NewListBlobsFlatPager(s.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			info := ObjectInfo{Name: *blob.Name}
			if blob.Properties != nil && blob.Properties.LastModified != nil {
				info.LastModified = *blob.Properties.LastModified
			} else {
				info.LastModified = time.Now()
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// Delete removes a snapshot.
func (s *AzureStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteBlob(ctx, s.containerName, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}

	logrus.Debugf("Deleted snapshot %s", name)
	return nil
}
