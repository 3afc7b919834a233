// Package image_handlers re-encodes browser image uploads so they can be forwarded to the backend.
package image_handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/logger"
)

const (
	// FileField is the form field carrying the image.
	FileField = "image"
	// MaxImageSize caps a single upload.
	MaxImageSize = 10 << 20
)

var (
	ErrMissingImage     = errors.New("an image file is required in the 'image' field")
	ErrImageTooLarge    = errors.New("image exceeds the 10 MB limit")
	ErrUnsupportedImage = errors.New("only JPEG, PNG, WebP and GIF images are accepted")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ReadImageUpload takes the image and the plain text fields (caption, section, ...)
// from the request and rebuilds them as a new multipart body.
func ReadImageUpload(c *gin.Context) (*clients.Multipart, error) {
	fileHeader, err := c.FormFile(FileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrMissingImage
		}
		logger.ErrorLogger.Errorf("Could not get form file 'image': %v", err)
		return nil, fmt.Errorf("could not process the provided image file: %w", err)
	}
	if fileHeader.Size > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !allowedImageTypes[strings.ToLower(contentType)] {
		return nil, ErrUnsupportedImage
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to open uploaded file: %v", err)
		return nil, err
	}
	defer file.Close()

	var fields map[string][]string
	if c.Request.MultipartForm != nil {
		fields = c.Request.MultipartForm.Value
	}
	return prepareMultipartRequest(file, fileHeader.Filename, contentType, fields)
}

// HandleFileError writes the 400 for a rejected upload.
func HandleFileError(c *gin.Context, err error) {
	logger.WarnLogger.Warnf("Rejected image upload: %v", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "error": err.Error()})
}

func prepareMultipartRequest(file io.Reader, filename, contentType string, fields map[string][]string) (*clients.Multipart, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for name, values := range fields {
		for _, v := range values {
			if err := writer.WriteField(name, v); err != nil {
				return nil, fmt.Errorf("failed to write field %s: %w", name, err)
			}
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to create multipart: %v", err)
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		logger.ErrorLogger.Errorf("Failed to copy file data: %v", err)
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return &clients.Multipart{Body: body, ContentType: writer.FormDataContentType()}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
