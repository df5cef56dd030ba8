package pipeline

import (
	"context"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/entity"
)

// InlineStage is the upload-time hook. With inline processing enabled the
// document runs through the pipeline immediately; otherwise it is only
// recorded as UPLOADED and left for a later batch.
type InlineStage struct {
	Orchestrator *Orchestrator
	Enabled      bool
}

func (s InlineStage) OnUpload(ctx context.Context, sub Submission) *entity.PipelineResult {
	o := s.Orchestrator
	if s.Enabled {
		return o.ProcessDocument(ctx, sub)
	}
	id := sub.DocumentID
	if id == "" {
		id = NewDocumentID(o.now())
	}
	o.setDocumentStatus(ctx, id, constants.DocumentUploaded)
	return &entity.PipelineResult{
		DocumentID:   id,
		UploadID:     sub.UploadID,
		BatchID:      sub.BatchID,
		Status:       constants.DocumentUploaded,
		DocumentType: constants.Unknown,
		Source: entity.SourceInfo{
			Filename:         sub.filename(),
			OriginalFilename: sub.OriginalFilename,
			Path:             sub.Path,
			FileSize:         sub.DeclaredSize,
		},
		Metadata: sub.Metadata,
	}
}
