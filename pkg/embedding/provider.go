package embedding

import "context"

// Task types hint the backend how the text will be used. Providers that do
// not distinguish query and document embeddings ignore them.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// Provider defines the contract for generating text embeddings.
type Provider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)

	// GenerateBatch embeds many texts in one call. The result is parallel to
	// the input slice.
	GenerateBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}
