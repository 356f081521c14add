package counsel

import (
	"bytes"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<head>
<meta charset="utf-8">
<title>채팅 요약 - 유어마인드</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; line-height: 1.6; }
.header { text-align: center; margin-bottom: 30px; }
.section { margin-bottom: 25px; }
.section-title { font-weight: bold; font-size: 18px; color: #2563EB; margin-bottom: 10px; }
.score-bar { display: flex; align-items: center; gap: 10px; margin-bottom: 8px; }
.score-label { min-width: 120px; }
.score-bar-container { flex: 1; height: 20px; background: #f0f0f0; border-radius: 10px; overflow: hidden; }
.score-bar-fill { height: 100%; border-radius: 10px; background: #2563EB; }
.score-number { font-weight: bold; min-width: 30px; }
</style>
</head>
<body>
<div class="header">
<h1>채팅 요약</h1>
<p>유어마인드 AI 상담사</p>
<p>생성일: {{.Date}}</p>
</div>
<div class="section">
<div class="section-title">대화 요약</div>
<div>{{.Summary.Narrative}}</div>
</div>
<div class="section">
<div class="section-title">심리 상태 점수</div>
{{range .Bars}}<div class="score-bar">
<div class="score-label">{{.Label}}</div>
<div class="score-bar-container"><div class="score-bar-fill" style="width: {{.Width}}%"></div></div>
<div class="score-number">{{.Score}}/10 ({{.Level}})</div>
</div>
{{end}}</div>
<div class="section">
<div class="section-title">권장사항</div>
<div>{{.Summary.Recommendation}}</div>
</div>
</body>
</html>
`))

type scoreBar struct {
	Label string
	Score int
	Level string
	Width int
}

func newScoreBar(label string, score int) scoreBar {
	width := score * 10
	if width < 0 {
		width = 0
	}
	if width > 100 {
		width = 100
	}
	return scoreBar{Label: label, Score: score, Level: ScoreLabel(score), Width: width}
}

// RenderReport 把总结渲染为可下载的 HTML 报告。
func RenderReport(s Summary, generatedAt time.Time) ([]byte, error) {
	data := struct {
		Date    string
		Summary Summary
		Bars    []scoreBar
	}{
		Date:    generatedAt.Format("2006. 1. 2."),
		Summary: s,
		Bars: []scoreBar{
			newScoreBar("스트레스 수준", s.Scores.Stress),
			newScoreBar("우울감 수준", s.Scores.Depression),
			newScoreBar("불안감 수준", s.Scores.Anxiety),
			newScoreBar("전반적인 심리 상태", s.Scores.Overall),
		},
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
