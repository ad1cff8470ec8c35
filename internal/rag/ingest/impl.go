package ingest

import (
	"strings"
	"time"

	"github.com/avarma/deptqa/internal/adapter/utils"
	"github.com/avarma/deptqa/internal/domain/ragModel"
)

//splitter

func splitTextIntoChunks(text string, limit int, overlap int) []string {
	var chunks []string

	if len(text) <= limit {
		return []string{text}
	}

	// Separators ordered from "best" to "worst" for semantic meaning
	separators := []string{"\n\n", "\n", ". ", " ", ""}

	var splitChar string
	found := false
	for _, s := range separators {
		if strings.Contains(text, s) {
			splitChar = s
			found = true
			break
		}
	}

	if !found {
		// Hard cut if no separator found (rare)
		return []string{text[:limit]}
	}

	parts := strings.Split(text, splitChar)
	var currentChunk strings.Builder

	for _, part := range parts {
		if currentChunk.Len()+len(part)+len(splitChar) > limit {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
			}

			// Overlap: start the next chunk with the tail of the previous one
			overlapContent := ""
			if currentChunk.Len() > overlap {
				overlapContent = currentChunk.String()[currentChunk.Len()-overlap:]
			}

			currentChunk.Reset()
			currentChunk.WriteString(overlapContent)
		}

		if currentChunk.Len() > 0 && splitChar != "" {
			currentChunk.WriteString(splitChar)
		}
		currentChunk.WriteString(part)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}

// PrepareChunks splits every page of every document into rows. The chunk
// index runs per document, zero based, so equal-score search ties stay
// deterministic.
func PrepareChunks(departmentId string, docs []ragModel.IngestDocument) []ragModel.DocumentChunk {
	var allChunks []ragModel.DocumentChunk

	const maxChunkSize = 1000 // characters
	const overlap = 150       // generous overlap helps semantic continuity

	now := time.Now()
	for _, doc := range docs {
		index := 0
		for _, page := range doc.Pages {
			if strings.TrimSpace(page) == "" {
				continue
			}
			for _, text := range splitTextIntoChunks(page, maxChunkSize, overlap) {
				allChunks = append(allChunks, ragModel.DocumentChunk{
					ChunkId:      utils.GetNewUUID(),
					DocumentId:   doc.DocumentId,
					DepartmentId: departmentId,
					ChunkIndex:   index,
					Text:         text,
					CreatedAt:    now,
					UpdatedAt:    now,
				})
				index++
			}
		}
	}

	return allChunks
}
