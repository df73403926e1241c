package rpc

import (
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"Lingua/internal/subnet"
	"Lingua/internal/types"
)

// buildGenerateRequest creates a FlatBuffers generate request.
func buildGenerateRequest(p subnet.Prompt, timeout time.Duration) []byte {
	builder := flatbuffers.NewBuilder(len(p.Text) + 64)

	promptOffset := builder.CreateString(p.Text)
	sourceOffset := builder.CreateString(p.SourceLanguage)
	targetOffset := builder.CreateString(p.TargetLanguage)

	types.GenerateRequestStart(builder)
	types.GenerateRequestAddPrompt(builder, promptOffset)
	types.GenerateRequestAddSourceLanguage(builder, sourceOffset)
	types.GenerateRequestAddTargetLanguage(builder, targetOffset)
	types.GenerateRequestAddTimeoutMs(builder, uint32(timeout.Milliseconds()))
	offset := types.GenerateRequestEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// parseGenerateRequest decodes a generate request.
func parseGenerateRequest(data []byte) (p subnet.Prompt, timeout time.Duration, err error) {
	defer recoverMalformed(&err)

	req := types.GetRootAsGenerateRequest(data, 0)

	p = subnet.Prompt{
		Text:           string(req.Prompt()),
		SourceLanguage: string(req.SourceLanguage()),
		TargetLanguage: string(req.TargetLanguage()),
	}

	return p, time.Duration(req.TimeoutMs()) * time.Millisecond, nil
}

// buildGenerateResponse creates a FlatBuffers generate response.
func buildGenerateResponse(answer string) []byte {
	builder := flatbuffers.NewBuilder(len(answer) + 32)

	answerOffset := builder.CreateString(answer)

	types.GenerateResponseStart(builder)
	types.GenerateResponseAddAnswer(builder, answerOffset)
	offset := types.GenerateResponseEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// parseGenerateResponse decodes a generate response.
// A response without an answer field is malformed; an empty answer is not.
func parseGenerateResponse(data []byte) (answer string, err error) {
	defer recoverMalformed(&err)

	resp := types.GetRootAsGenerateResponse(data, 0)

	raw := resp.Answer()
	if raw == nil {
		return "", fmt.Errorf("%w: missing answer", ErrMalformedResponse)
	}

	return string(raw), nil
}

// buildScoreReport creates a FlatBuffers score report.
// Metrics are written in the order of names.
func buildScoreReport(rec subnet.ScoreRecord, names []string) []byte {
	builder := flatbuffers.NewBuilder(256)

	nameOffsets := make([]flatbuffers.UOffsetT, len(names))
	for i, name := range names {
		nameOffsets[i] = builder.CreateString(name)
	}

	types.ScoreReportStartMetricNamesVector(builder, len(names))
	for i := len(nameOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(nameOffsets[i])
	}
	namesVec := builder.EndVector(len(names))

	types.ScoreReportStartMetricValuesVector(builder, len(names))
	for i := len(names) - 1; i >= 0; i-- {
		builder.PrependFloat64(rec.Metrics[names[i]])
	}
	valuesVec := builder.EndVector(len(names))

	types.ScoreReportStart(builder)
	types.ScoreReportAddUid(builder, uint16(rec.UID))
	types.ScoreReportAddComposite(builder, rec.Composite)
	types.ScoreReportAddMetricNames(builder, namesVec)
	types.ScoreReportAddMetricValues(builder, valuesVec)
	offset := types.ScoreReportEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// parseScoreReport decodes a score report.
func parseScoreReport(data []byte) (rec subnet.ScoreRecord, err error) {
	defer recoverMalformed(&err)

	report := types.GetRootAsScoreReport(data, 0)

	if report.MetricNamesLength() != report.MetricValuesLength() {
		return subnet.ScoreRecord{}, fmt.Errorf("%w: %d metric names, %d values",
			ErrMalformedResponse, report.MetricNamesLength(), report.MetricValuesLength())
	}

	rec = subnet.ScoreRecord{
		UID:       subnet.UID(report.Uid()),
		Composite: report.Composite(),
		Metrics:   make(map[string]float64, report.MetricNamesLength()),
	}

	for i := 0; i < report.MetricNamesLength(); i++ {
		rec.Metrics[string(report.MetricNames(i))] = report.MetricValues(i)
	}

	return rec, nil
}

// buildScoreAck creates a FlatBuffers score acknowledgement.
func buildScoreAck(answer bool) []byte {
	builder := flatbuffers.NewBuilder(16)

	types.ScoreAckStart(builder)
	types.ScoreAckAddAnswer(builder, answer)
	offset := types.ScoreAckEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// parseScoreAck decodes a score acknowledgement.
func parseScoreAck(data []byte) (answer bool, err error) {
	defer recoverMalformed(&err)

	return types.GetRootAsScoreAck(data, 0).Answer(), nil
}

// recoverMalformed turns an out-of-bounds read on hostile input into an error.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformedResponse, r)
	}
}
