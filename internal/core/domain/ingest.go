package domain

// IngestRequest is an upload handed to the ingestion orchestrator.
type IngestRequest struct {
	Content     []byte
	MIMEType    string
	Filename    string
	Title       string
	Description string
	ScopeID     string
}

// RawDocument returns the parser input for the request.
func (r *IngestRequest) RawDocument() *RawDocument {
	return &RawDocument{Content: r.Content, MIMEType: r.MIMEType, Filename: r.Filename}
}

// ArtifactTitle returns the explicit title, or the filename when none is given.
func (r *IngestRequest) ArtifactTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Filename
}

// IngestResult is the partial-success outcome of an ingestion.
// Chunks == Embedded + Failed.
type IngestResult struct {
	Artifact *Artifact
	Chunks   int
	Embedded int
	Failed   int

	// Updated is true when an artifact with the same title and scope was replaced.
	Updated bool

	// Unchanged is true when re-ingestion was skipped because content was identical.
	Unchanged bool
}

// Complete reports whether every chunk received an embedding.
func (r *IngestResult) Complete() bool {
	return r.Failed == 0
}

// RepairResult is the outcome of one embedding repair sweep.
type RepairResult struct {
	// Scanned is the number of unembedded chunks picked up by the sweep.
	Scanned int

	// Repaired is the number of chunks that now have an embedding.
	Repaired int

	// Failed is the number of chunks still lacking an embedding.
	Failed int
}
