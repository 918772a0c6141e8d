package ocrfallback

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	cfg "github.com/chemlabel/chemdoc-processor/config"
	"github.com/chemlabel/chemdoc-processor/pkg/logger"
)

// TextractRecognizer 云端识别后端，按配置替代本地 Tesseract 使用
type TextractRecognizer struct {
	client        *textract.Client
	minConfidence float32
	logger        logger.Logger
}

func NewTextractRecognizer(ctx context.Context, conf *cfg.TextractConfig, log logger.Logger) (*TextractRecognizer, error) {
	creds := credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(conf.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &TextractRecognizer{
		client:        textract.NewFromConfig(awsCfg),
		minConfidence: conf.MinConfidence,
		logger:        log,
	}, nil
}

func (t *TextractRecognizer) Available() bool {
	return t.client != nil
}

func (t *TextractRecognizer) Recognize(ctx context.Context, imageData []byte) (string, error) {
	input := &textract.DetectDocumentTextInput{
		Document: &types.Document{
			Bytes: imageData,
		},
	}

	result, err := t.client.DetectDocumentText(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}

	var lines []string
	for _, block := range result.Blocks {
		if block.BlockType == types.BlockTypeLine &&
			block.Confidence != nil &&
			*block.Confidence >= t.minConfidence &&
			block.Text != nil {
			lines = append(lines, *block.Text)
		}
	}

	return strings.Join(lines, "\n"), nil
}
