package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"alfredoptarigan/counsel-report/internal/docx/docxtest"
	"alfredoptarigan/counsel-report/internal/models"
)

func ptr(v float64) *float64 { return &v }

// minimalPDF writes a valid PDF with the given number of blank pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func sampleRequest() *models.ReportRequest {
	return &models.ReportRequest{
		CounselRequestID: "5f1c9a2e-7d44-4b1e-9a0c-2f3e4d5c6b7a",
		ChildID:          "child-1",
		ChildName:        "김민수",
		CoverInfo: models.CoverInfo{
			RequestDate:   models.RequestDate{Year: 2025, Month: 1, Day: 15},
			CenterName:    "행복지역아동센터",
			CounselorName: "박상담",
		},
		BasicInfo: models.BasicInfo{
			ChildInfo: models.ChildInfo{
				Name:      "김민수",
				Gender:    "MALE",
				Age:       10,
				Grade:     "4학년",
				BirthDate: &models.RequestDate{Year: 2014, Month: 3, Day: 2},
			},
			CareType:        "PRIORITY",
			PriorityReasons: []string{"LOW_INCOME", "SINGLE_PARENT"},
		},
		PsychologicalInfo: models.PsychologicalInfo{
			MedicalHistory: "",
			SpecialNotes:   "수업 중 집중이 어렵습니다.",
		},
		RequestMotivation: models.RequestMotivation{
			Motivation: "또래 관계 어려움",
			Goals:      "정서 안정",
		},
		AttachedAssessments: []models.Attachment{
			{
				AssessmentType: models.InstrumentKPRC,
				ReportS3Key:    "assessments/kprc.pdf",
				Scores:         map[string]*float64{"ERS": ptr(25), "ICN": ptr(80), "ANX": ptr(50)},
				Summary: &models.AssessmentSummary{
					SummaryLines:  []string{"자아탄력성이 낮습니다.", "불안 수준은 평균입니다."},
					ExpertOpinion: "정서 지원이 필요합니다.",
				},
			},
			{
				AssessmentType: models.InstrumentCRTESR,
				Scores:         map[string]*float64{"total": ptr(23)},
				Summary:        &models.AssessmentSummary{SummaryLines: []string{"외상 반응이 관찰됩니다."}},
			},
			{
				AssessmentType: models.InstrumentSDQA,
				ReportS3Key:    "assessments/sdq.pdf",
				Scores:         map[string]*float64{"strengths": ptr(6), "difficulties": ptr(12)},
				Summary: &models.AssessmentSummary{
					SummaryLines: []string{"s1", "s2", "s3", "d1", "d2", "d3", "extra"},
				},
			},
		},
		GuardianInfo: &models.GuardianInfo{
			Name:            "김보호",
			PhoneNumber:     "010-1234-5678",
			HomePhone:       "02-123-4567",
			Address:         "서울시 중구",
			AddressDetail:   "101호",
			RelationToChild: "모",
		},
	}
}

func referralTemplate() *docxtest.Builder {
	return docxtest.New().
		Paragraph("의뢰일자:          센터명:").
		Paragraph("담당자:          (서명)").
		Table([]int{1500, 1500, 1500, 1500, 1500, 1500, 1500, 1500},
			[]string{"성명", "", "성별", "", "나이", "", "학년", ""},
			[]string{"센터 이용 기준", "□ 우선돌봄",
				"□ 기초생활보장 수급권자\n□ 차상위계층 가구의 아동\n□ 의료급여 수급권자\n□ 장애가구의 아동 또는 장애 아동\n□ 다문화가족의 아동",
				"□ 한부모가족의 아동\n□ 조손가구의 아동\n□ 초･중･고 교육비 지원 대상 아동\n□ 자녀가 2명 이상인 가구의 아동"},
			[]string{"", "□ 일반돌봄"},
			[]string{"", "□ 특수돌봄"}).
		Table([]int{2000, 7000}, []string{"병력", ""}, []string{"특이사항", ""}).
		Table([]int{2000, 7000}, []string{"의뢰동기", ""}, []string{"상담목표", ""}).
		Table([]int{9000}, []string{"종합소견"}, []string{""}).
		Table([]int{3000, 3000, 3000},
			[]string{"보호대상아동", "□ 아동양육시설", "□ 공동생활가정"},
			[]string{"보호 사유", "□ 보호자가 없거나 보호자로부터 이탈"}).
		Table([]int{9000}, []string{"KPRC"}, []string{""}).
		Table([]int{9000}, []string{"CRTES-R"}, []string{""}).
		Table([]int{9000}, []string{"SDQ-A"}, []string{""}, []string{""}).
		Table([]int{3000, 3000, 3000}, []string{"판정", "□ 해당", "□ 비해당"}, []string{"사유", ""}).
		Paragraph("□ 동의    □ 미동의")
}

func recommendationTemplate() *docxtest.Builder {
	return docxtest.New().
		Paragraph("사회서비스 이용 추천서").
		Table([]int{3000, 3000, 3000},
			[]string{"성명", "생년월일", "주소"},
			[]string{"", "", ""},
			[]string{"보호자 성명", "관계", "연락처"},
			[]string{"", "", ""}).
		Table([]int{2000, 7000},
			[]string{"의뢰 동기", ""},
			[]string{"판단 근거", ""},
			[]string{"추천자 의견", ""}).
		Table([]int{1500, 2000, 1500, 1500, 2500},
			[]string{"기관명", "", "", "전화", ""},
			[]string{"주소", ""},
			[]string{"직위", "", "성명", ""},
			[]string{"이용자와의 관계:"}).
		Paragraph("20   .   .   .").
		Paragraph("발  급  처:")
}

// fakeConverter returns a one page PDF and records every input.
type fakeConverter struct {
	mu     sync.Mutex
	inputs [][]byte
	err    error
}

func (c *fakeConverter) Convert(_ context.Context, docx []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, docx)
	if c.err != nil {
		return nil, c.err
	}
	return minimalPDF(1), nil
}

func (c *fakeConverter) Health(context.Context) error { return c.err }

type fakeProducer struct {
	kind  models.DocumentKind
	err   error
	calls int
}

func (p *fakeProducer) Kind() models.DocumentKind { return p.kind }

func (p *fakeProducer) Produce(context.Context, *models.ReportRequest) ([]byte, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []byte(string(p.kind)), nil
}

// fakeStorage serves attachment bytes equal to "attachment:<key>".
type fakeStorage struct {
	resolveErr   error
	downloadErr  error
	uploadErr    error
	resolved     []string
	ttls         []time.Duration
	uploaded     []byte
	uploadName   string
	uploadFolder string
	uploads      int
}

func (s *fakeStorage) ResolveAccessURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	s.resolved = append(s.resolved, key)
	s.ttls = append(s.ttls, ttl)
	return "https://files.test/" + key, nil
}

func (s *fakeStorage) Download(_ context.Context, url string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	return []byte("attachment:" + strings.TrimPrefix(url, "https://files.test/")), nil
}

func (s *fakeStorage) Upload(_ context.Context, data []byte, filename, folder string) (string, error) {
	s.uploads++
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploaded = data
	s.uploadName = filename
	s.uploadFolder = folder
	return folder + "/" + filename, nil
}

// fakeMerger joins the inputs with "|" so tests can read back the order.
type fakeMerger struct {
	calls int
	docs  []string
	meta  PDFMetadata
	err   error
}

func (m *fakeMerger) Merge(docs [][]byte, meta PDFMetadata) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.docs = nil
	for _, d := range docs {
		m.docs = append(m.docs, string(d))
	}
	m.meta = meta
	return []byte(strings.Join(m.docs, "|")), nil
}

type fakeInspector struct {
	err error
}

func (i *fakeInspector) PageCount([]byte) (int, error) {
	if i.err != nil {
		return 0, i.err
	}
	return 1, nil
}
