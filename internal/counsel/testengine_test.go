package counsel

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"0", 0, true},
		{"3", 3, true},
		{" 2 ", 2, true},
		{"4", 0, false},
		{"10", 0, false},
		{"-1", 0, false},
		{"삼", 3, true},
		{"둘", 2, true},
		{"하나", 1, true},
		{"없음", 0, true},
		{"가끔", 1, true},
		{"자주", 3, true},
		{"전혀 그렇지 않아요", 0, true},
		{"조금 그런 것 같아요", 1, true},
		{"어느 정도 있었어요", 2, true},
		{"매우 심했어요", 3, true},
		{"잘 모르겠어요", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAnswer(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseAnswer(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func startedRun(t *testing.T, testID string) TestRun {
	t.Helper()
	run, intro, err := SelectTest(testID)
	if err != nil {
		t.Fatalf("SelectTest(%s) error = %v", testID, err)
	}
	if !strings.Contains(intro, "시작") {
		t.Fatalf("intro should ask the user to reply 시작, got %q", intro)
	}
	if run.IsActive || run.TestStarted {
		t.Fatalf("selected run should be awaiting start, got %+v", run)
	}
	run, first, ok := BeginIfTriggered("시작", run)
	if !ok {
		t.Fatal("BeginIfTriggered(시작) should start the run")
	}
	if !strings.HasPrefix(first, "질문 1/") {
		t.Fatalf("first prompt = %q, want question 1", first)
	}
	return run
}

func answerAll(t *testing.T, run TestRun, answers []string) AnswerOutcome {
	t.Helper()
	var out AnswerOutcome
	var err error
	for i, a := range answers {
		out, run, err = SubmitAnswer(a, run)
		if err != nil {
			t.Fatalf("SubmitAnswer #%d error = %v", i, err)
		}
		if !out.Accepted {
			t.Fatalf("answer #%d %q rejected", i, a)
		}
	}
	if run.Selected() || run.IsActive {
		t.Fatalf("run should be cleared after the last answer, got %+v", run)
	}
	return out
}

func TestPHQ9AllZerosIsMinimal(t *testing.T) {
	run := startedRun(t, "phq9")
	out := answerAll(t, run, strings.Split("0,0,0,0,0,0,0,0,0", ","))
	if out.Result == nil {
		t.Fatal("expected a result after the last question")
	}
	if out.Result.TotalScore != 0 {
		t.Errorf("total = %d, want 0", out.Result.TotalScore)
	}
	if out.Result.Band == nil || out.Result.Band.Label != "정상 범위" {
		t.Errorf("band = %+v, want 정상 범위", out.Result.Band)
	}
}

func TestPHQ9AllThreesIsSevere(t *testing.T) {
	run := startedRun(t, "phq9")
	out := answerAll(t, run, strings.Split("3,3,3,3,3,3,3,3,3", ","))
	if out.Result.TotalScore != 27 || out.Result.MaxScore != 27 {
		t.Errorf("score = %d/%d, want 27/27", out.Result.TotalScore, out.Result.MaxScore)
	}
	if out.Result.Band == nil || out.Result.Band.Label != "심한 우울" {
		t.Fatalf("band = %+v, want 심한 우울", out.Result.Band)
	}
	if !strings.Contains(out.Prompt, "전문가와 즉시 상담") {
		t.Errorf("severe result should urge immediate consultation, got %q", out.Prompt)
	}
}

func TestGAD7Bands(t *testing.T) {
	cases := []struct {
		answers string
		total   int
		label   string
	}{
		{"1,1,1,1,1,0,0", 5, "경미한 불안"},
		{"2,2,2,2,2,0,0", 10, "중간 정도의 불안"},
		{"3,3,3,3,3,0,0", 15, "심한 불안"},
	}
	for _, tc := range cases {
		run := startedRun(t, "gad7")
		out := answerAll(t, run, strings.Split(tc.answers, ","))
		if out.Result.TotalScore != tc.total || out.Result.Band.Label != tc.label {
			t.Errorf("%s: got %d %q, want %d %q", tc.answers, out.Result.TotalScore, out.Result.Band.Label, tc.total, tc.label)
		}
	}
}

func TestCSSRSIsUnscored(t *testing.T) {
	run := startedRun(t, "cssrs")
	out := answerAll(t, run, strings.Split("0,1,0,0,0,0,0", ","))
	if out.Result.Band != nil {
		t.Errorf("cssrs should have no band, got %+v", out.Result.Band)
	}
	if out.Result.TotalScore != 1 {
		t.Errorf("total = %d, want 1", out.Result.TotalScore)
	}
	if !strings.Contains(out.Prompt, "전문가") {
		t.Errorf("cssrs result should point to professional help, got %q", out.Prompt)
	}
}

func TestSubmitAnswerRejectsUnparseable(t *testing.T) {
	run := startedRun(t, "phq9")
	out, next, err := SubmitAnswer("1", run)
	if err != nil || !out.Accepted {
		t.Fatalf("first answer failed: %v %+v", err, out)
	}

	for _, bad := range []string{"잘 모르겠어요", "4"} {
		out, after, err := SubmitAnswer(bad, next)
		if err != nil {
			t.Fatalf("SubmitAnswer(%q) error = %v", bad, err)
		}
		if out.Accepted {
			t.Errorf("SubmitAnswer(%q) should be rejected", bad)
		}
		if after.CurrentQuestion != next.CurrentQuestion || len(after.Answers) != len(next.Answers) {
			t.Errorf("run advanced on %q: before %+v after %+v", bad, next, after)
		}
		if !strings.Contains(out.Prompt, "질문 2/9") {
			t.Errorf("clarification should repeat question 2, got %q", out.Prompt)
		}
	}
}

func TestSubmitAnswerWithoutActiveRun(t *testing.T) {
	run, _, _ := SelectTest("phq9")
	if _, _, err := SubmitAnswer("1", run); !errors.Is(err, ErrNoActiveTest) {
		t.Fatalf("err = %v, want ErrNoActiveTest", err)
	}
}

func TestBeginIfTriggeredNeedsStartWord(t *testing.T) {
	run, _, _ := SelectTest("gad7")
	if _, _, ok := BeginIfTriggered("잠깐만요", run); ok {
		t.Error("run should not start without 시작 or 네")
	}
	if _, _, ok := BeginIfTriggered("네 좋아요", run); !ok {
		t.Error("run should start on 네")
	}
}

func TestSelectUnknownTest(t *testing.T) {
	if _, _, err := SelectTest("mmpi"); !errors.Is(err, ErrUnknownTest) {
		t.Fatalf("err = %v, want ErrUnknownTest", err)
	}
}
