package handler

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cv-match-go/internal/config"
	"cv-match-go/internal/constants"
	"cv-match-go/internal/processor"
	"cv-match-go/internal/storage/models"
	"cv-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatchProcessor 记录调用参数并返回预设结果
type fakeMatchProcessor struct {
	resp      *processor.MatchResponse
	record    *models.MatchRecord
	err       error
	gotOffer  string
	gotResume []byte
	gotUUID   string
}

func (f *fakeMatchProcessor) ProcessMatch(ctx context.Context, offerText string, resumePDF []byte) (*processor.MatchResponse, error) {
	f.gotOffer = offerText
	f.gotResume = resumePDF
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeMatchProcessor) GetMatchRecord(ctx context.Context, matchUUID string) (*models.MatchRecord, error) {
	f.gotUUID = matchUUID
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func validOfferText() string {
	return strings.Repeat("Backend engineer with Go experience. ", 5)
}

func TestHandleMatchOfferTextTooShort(t *testing.T) {
	h := NewMatchHandler(&config.Config{}, &fakeMatchProcessor{})

	_, err := h.HandleMatch(context.Background(), "too short", bytes.NewReader([]byte("pdf")), 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOfferTextTooShort)
	assert.True(t, IsValidationError(err))
}

func TestHandleMatchOfferTextTooLong(t *testing.T) {
	h := NewMatchHandler(&config.Config{}, &fakeMatchProcessor{})
	longText := strings.Repeat("x", constants.MaxOfferTextLength+1)

	_, err := h.HandleMatch(context.Background(), longText, bytes.NewReader([]byte("pdf")), 3)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOfferTextTooLong)
}

func TestHandleMatchFileTooBigByHeader(t *testing.T) {
	// 声明的文件大小超限时直接拒绝，不读取内容
	h := NewMatchHandler(&config.Config{}, &fakeMatchProcessor{})

	_, err := h.HandleMatch(context.Background(), validOfferText(), bytes.NewReader(nil), constants.MaxResumeFileSize+1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResumeFileTooBig)
}

func TestHandleMatchFileEmpty(t *testing.T) {
	h := NewMatchHandler(&config.Config{}, &fakeMatchProcessor{})

	_, err := h.HandleMatch(context.Background(), validOfferText(), bytes.NewReader([]byte("x")), 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResumeFileEmpty)
}

func TestHandleMatchSuccess(t *testing.T) {
	fake := &fakeMatchProcessor{
		resp: &processor.MatchResponse{
			MatchUUID: "uuid-1",
			Result:    &types.MatchResult{SectorScore: 80},
		},
	}
	h := NewMatchHandler(&config.Config{}, fake)
	offerText := validOfferText()
	fileContent := []byte(strings.Repeat("p", 64))

	resp, err := h.HandleMatch(context.Background(), offerText, bytes.NewReader(fileContent), int64(len(fileContent)))

	require.NoError(t, err)
	assert.Equal(t, "uuid-1", resp.MatchUUID)
	assert.Equal(t, 80, resp.Result.SectorScore)
	assert.Equal(t, offerText, fake.gotOffer)
	assert.Equal(t, fileContent, fake.gotResume)
}

func TestHandleGetMatch(t *testing.T) {
	fake := &fakeMatchProcessor{
		record: &models.MatchRecord{MatchUUID: "uuid-2", OfferRole: "Backend Engineer"},
	}
	h := NewMatchHandler(&config.Config{}, fake)

	record, err := h.HandleGetMatch(context.Background(), "uuid-2")

	require.NoError(t, err)
	assert.Equal(t, "uuid-2", record.MatchUUID)
	assert.Equal(t, "uuid-2", fake.gotUUID)
}

func TestHandleGetMatchEmptyUUID(t *testing.T) {
	h := NewMatchHandler(&config.Config{}, &fakeMatchProcessor{})

	_, err := h.HandleGetMatch(context.Background(), "")

	require.Error(t, err)
}
