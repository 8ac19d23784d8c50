package content

import "cvforge/internal/types"

func docFixture() types.UploadedDocument {
	return types.UploadedDocument{
		FileName:  "cv.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 2048,
	}
}
