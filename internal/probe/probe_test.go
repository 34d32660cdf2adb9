package probe

import (
	"LogSpectra/internal/model"
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.err
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func testReport() *model.Report {
	return &model.Report{
		ID:          "3f2b",
		Source:      "nginx-access-ui.log-20170630.gz",
		Date:        time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2017, 7, 1, 3, 4, 5, 0, time.UTC),
		Summary:     model.Summary{TotalLines: 20, Processed: 20, Endpoints: 20, TotalTime: 6.457, P99: 1.5},
		Rows: []model.EndpointRow{
			{URL: "/api/v2/banner/25019354", Count: 1, CountPerc: 5, TimeAvg: 0.39, TimeMax: 0.39, TimeSum: 0.39, TimePerc: 6.04, TimeMed: 0.39},
		},
	}
}

func TestEncodeDecodeReport(t *testing.T) {
	data, err := EncodeReport(testReport())
	if err != nil {
		t.Fatalf("EncodeReport failed: %v", err)
	}

	got, raw, err := DecodeReport(data)
	if err != nil {
		t.Fatalf("DecodeReport failed: %v", err)
	}
	if got.ID != "3f2b" || !got.Date.Equal(testReport().Date) || got.Summary.TotalTime != 6.457 {
		t.Errorf("Unexpected decoded report: %+v", got)
	}
	if len(got.Rows) != 1 || got.Rows[0].TimePerc != 6.04 || got.Rows[0].Count != 1 {
		t.Errorf("Unexpected decoded rows: %+v", got.Rows)
	}
	if raw.Fields["source"].GetStringValue() != "nginx-access-ui.log-20170630.gz" {
		t.Errorf("Raw struct is missing the source field")
	}
}

func TestDecodeReport_Garbage(t *testing.T) {
	if _, _, err := DecodeReport([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("Expected an error for invalid protobuf data")
	}
}

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{nc: fc, subject: "logspectra.reports"}

	if err := p.Publish(testReport()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if fc.subject != "logspectra.reports" || len(fc.data) == 0 {
		t.Fatalf("Nothing was published")
	}
	if _, _, err := DecodeReport(fc.data); err != nil {
		t.Errorf("Published payload does not decode: %v", err)
	}

	fc.err = errors.New("nats: connection closed")
	if err := p.Publish(testReport()); err == nil {
		t.Error("Expected the publish error to be returned")
	}

	p.Close()
	if !fc.drained {
		t.Error("Close should drain the connection")
	}
}
