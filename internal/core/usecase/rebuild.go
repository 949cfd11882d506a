package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
	"github.com/ministryofjustice/rd-search-backend/internal/core/ports"
)

// corpusPassage is the on-storage shape of one parsed policy passage.
// The parsing pipeline that produces these files is outside this service.
type corpusPassage struct {
	Content string         `json:"content"`
	Meta    map[string]any `json:"meta"`
}

// RebuildUseCase re-indexes the corpus from object storage: list the
// corpus files under a prefix, chunk each passage, embed the chunks and
// bulk-write them to the document store. Rebuilds run on the worker and
// must not overlap query traffic against the same index version; the
// queue serialises them.
type RebuildUseCase struct {
	storage   ports.ObjectStorage
	store     ports.DocumentStore
	embedder  ports.Embedder
	chunker   ports.Chunker
	registry  ports.CorpusRegistry
	batchSize int
}

func NewRebuildUseCase(
	storage ports.ObjectStorage,
	store ports.DocumentStore,
	embedder ports.Embedder,
	chunker ports.Chunker,
	registry ports.CorpusRegistry,
	batchSize int,
) *RebuildUseCase {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &RebuildUseCase{
		storage:   storage,
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		registry:  registry,
		batchSize: batchSize,
	}
}

// Rebuild indexes every corpus file under prefix. A failing file is
// recorded in the registry and skipped; the rebuild only fails outright
// when listing fails or no file could be indexed.
func (uc *RebuildUseCase) Rebuild(ctx context.Context, prefix string) error {
	keys, err := uc.storage.List(ctx, prefix)
	if err != nil {
		return domain.WrapError(domain.ErrRetrieval, "list corpus files", err)
	}
	if len(keys) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "rebuild index", fmt.Errorf("no corpus files under prefix %q", prefix))
	}

	indexed := 0
	for _, key := range keys {
		rec := &domain.CorpusRecord{
			ID:        uuid.NewString(),
			SourceKey: key,
			IndexedAt: time.Now().UTC(),
		}

		chunkCount, err := uc.indexFile(ctx, key)
		if err != nil {
			rec.Status = domain.CorpusStatusFailed
			rec.Error = err.Error()
		} else {
			rec.Status = domain.CorpusStatusIndexed
			rec.ChunkCount = chunkCount
			indexed++
		}

		if regErr := uc.registry.Upsert(ctx, rec); regErr != nil {
			return fmt.Errorf("record corpus file %s: %w", key, regErr)
		}
	}

	if indexed == 0 {
		return domain.WrapError(domain.ErrRetrieval, "rebuild index", errors.New("all corpus files failed to index"))
	}
	return nil
}

func (uc *RebuildUseCase) indexFile(ctx context.Context, key string) (int, error) {
	data, err := uc.storage.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read corpus file: %w", err)
	}

	var passages []corpusPassage
	if err := json.Unmarshal(data, &passages); err != nil {
		return 0, fmt.Errorf("parse corpus file: %w", err)
	}

	docs := uc.chunkPassages(key, passages)
	if len(docs) == 0 {
		return 0, errors.New("corpus file produced zero chunks")
	}

	for start := 0; start < len(docs); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := uc.indexBatch(ctx, docs[start:end]); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}

func (uc *RebuildUseCase) chunkPassages(key string, passages []corpusPassage) []domain.Document {
	docs := make([]domain.Document, 0, len(passages))
	for _, passage := range passages {
		for i, chunk := range uc.chunker.Split(passage.Content) {
			meta := make(map[string]any, len(passage.Meta)+2)
			for k, v := range passage.Meta {
				meta[k] = v
			}
			meta["source_key"] = key
			meta["chunk_index"] = i

			docs = append(docs, domain.Document{
				ID:      uuid.NewString(),
				Content: chunk,
				Meta:    meta,
			})
		}
	}
	return docs
}

func (uc *RebuildUseCase) indexBatch(ctx context.Context, docs []domain.Document) error {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Content)
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(docs) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(docs)),
		)
	}

	if err := uc.store.Index(ctx, docs, vectors); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}
