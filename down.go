package contentrange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/nyurik/http-content-range/config"
)

// Download fetches a whole resource into memory through concurrent range
// requests, sized and throttled by cfg.
func Download(ctx context.Context, clt Requester, url string, cfg config.Download) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reader, totalSize, err := openReader(ctx, clt, url)
	if err != nil {
		return nil, err
	}

	var buf = make([]byte, totalSize)
	var chunks = splitBuffer(totalSize, cfg.ChunkSize, buf)
	var chunkCh = make(chan memoryChunk, len(chunks))
	for _, c := range chunks {
		chunkCh <- c
	}
	close(chunkCh)

	var group, errCtx = errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		group.Go(func() error {
			for c := range chunkCh {
				select {
				case <-errCtx.Done():
					return nil
				default:
				}
				if err := readChunk(errCtx, reader, cfg, c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return nil, err
	}
	return buf, nil
}

// DownloadWithCheck is Download plus a sha256 integrity check of the result.
func DownloadWithCheck(ctx context.Context, clt Requester, url, sha256Sum string, cfg config.Download) ([]byte, error) {
	var result, err = Download(ctx, clt, url, cfg)
	if err != nil {
		return nil, err
	}
	ok, err := checksumEqual(result, sha256Sum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("sha256 checksum not equal with %v", sha256Sum)
	}
	return result, nil
}

// DownloadToFile streams the resource into filePath. Chunks are written by a
// single goroutine as they arrive, so the file never holds torn chunks.
func DownloadToFile(ctx context.Context, clt Requester, url, filePath string, cfg config.Download) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	reader, totalSize, err := openReader(ctx, clt, url)
	if err != nil {
		return err
	}
	var chunks = splitSpan(totalSize, cfg.ChunkSize)
	var chunkCh = make(chan fileChunk, len(chunks))
	for _, c := range chunks {
		chunkCh <- c
	}
	close(chunkCh)
	var doneCh = make(chan memoryChunk, len(chunks))

	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filePath)
	}
	defer file.Close()

	var group, errCtx = errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		group.Go(func() error {
			for c := range chunkCh {
				select {
				case <-errCtx.Done():
					return nil
				default:
				}
				var mc = memoryChunk{
					offset:  c.offset,
					content: make([]byte, c.size),
				}
				if err := readChunk(errCtx, reader, cfg, mc); err != nil {
					return err
				}
				select {
				case <-errCtx.Done():
					return nil
				case doneCh <- mc:
				}
			}
			return nil
		})
	}

	// single routine owns the file handle
	group.Go(func() error {
		var totalWrite int64
		for totalWrite < totalSize {
			select {
			case <-errCtx.Done():
				return nil
			case c := <-doneCh:
				if _, err := file.WriteAt(c.content, c.offset); err != nil {
					return errors.Wrapf(err, "failed to write chunk at %d", c.offset)
				}
				totalWrite += int64(len(c.content))
			}
		}
		return nil
	})
	return group.Wait()
}

// openReader probes url and rejects resources of unknown or empty size,
// which cannot be split into chunks up front.
func openReader(ctx context.Context, clt Requester, url string) (*HTTPReaderAt, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	reader, err := NewReaderAt(clt, req)
	if err != nil {
		return nil, 0, err
	}
	size := reader.Size()
	if size <= 0 {
		return nil, 0, errors.Errorf("resource size %d, cannot download in chunks", size)
	}
	return reader, size, nil
}

// readChunk fills one chunk, bounded by the configured per-chunk timeout.
func readChunk(ctx context.Context, reader *HTTPReaderAt, cfg config.Download, c memoryChunk) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.ChunkTimeout())
	defer cancel()
	var n, err = reader.Clone(ctx).ReadAt(c.content, c.offset)
	if err != nil {
		return err
	}
	if n != len(c.content) {
		return errors.Errorf("download size %v not equal with expect size %v, for chunk(offset %v size %v)",
			n, len(c.content), c.offset, len(c.content))
	}
	return nil
}

// splitBuffer slices buf into chunk-aligned windows over [0, totalSize).
func splitBuffer(totalSize, chunkSize int64, buf []byte) []memoryChunk {
	var chunks []memoryChunk
	for _, c := range splitSpan(totalSize, chunkSize) {
		chunks = append(chunks, memoryChunk{
			offset:  c.offset,
			content: buf[c.offset : c.offset+c.size],
		})
	}
	return chunks
}

// splitSpan cuts [0, totalSize) into consecutive chunks of at most chunkSize.
func splitSpan(totalSize, chunkSize int64) []fileChunk {
	var chunks = make([]fileChunk, 0, totalSize/chunkSize+1)
	for offset := int64(0); offset < totalSize; offset += chunkSize {
		size := chunkSize
		if offset+size > totalSize {
			size = totalSize - offset
		}
		chunks = append(chunks, fileChunk{offset: offset, size: size})
	}
	return chunks
}

func checksumEqual(content []byte, checksum string) (bool, error) {
	expect, err := hex.DecodeString(checksum)
	if err != nil {
		return false, errors.Wrap(err, "invalid sha256 checksum")
	}
	got := sha256.Sum256(content)
	return hmac.Equal(got[:], expect), nil
}

type memoryChunk struct {
	offset  int64
	content []byte
}

type fileChunk struct {
	offset int64
	size   int64
}
