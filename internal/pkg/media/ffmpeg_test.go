package media

import (
	"testing"
)

func TestParseProbeOutput(t *testing.T) {
	out := []byte(`{
		"format": {"duration": "20.48"},
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1280, "height": 720}
		]
	}`)

	md, err := parseProbeOutput(out)
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}
	if md.Duration != 20.48 {
		t.Errorf("Expected duration 20.48, got %f", md.Duration)
	}
	if md.Width != 1280 || md.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", md.Width, md.Height)
	}
}

func TestParseProbeOutput_NoVideoStream(t *testing.T) {
	out := []byte(`{
		"format": {"duration": "5.0"},
		"streams": [{"codec_type": "audio"}]
	}`)

	md, err := parseProbeOutput(out)
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}
	if md.Width != 1920 || md.Height != 1080 {
		t.Errorf("Expected 1920x1080 fallback, got %dx%d", md.Width, md.Height)
	}
}

func TestParseProbeOutput_BadDuration(t *testing.T) {
	out := []byte(`{"format": {"duration": "N/A"}, "streams": []}`)
	if _, err := parseProbeOutput(out); err == nil {
		t.Error("Expected error for unparseable duration")
	}
}

func TestParseShowinfoTimes(t *testing.T) {
	out := `[Parsed_showinfo_1 @ 0x55] n:   0 pts:  76800 pts_time:2.56    pos: 100
[Parsed_showinfo_1 @ 0x55] n:   1 pts: 230400 pts_time:7.68    pos: 200
[Parsed_showinfo_1 @ 0x55] n:   2 pts: 460800 pts_time:15.36   pos: 300
frame dropped text without pts`

	times := parseShowinfoTimes(out)
	want := []float64{2.56, 7.68, 15.36}
	if len(times) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d: %v", len(want), len(times), times)
	}
	for i, ts := range want {
		if times[i] != ts {
			t.Errorf("Expected times[%d]=%f, got %f", i, ts, times[i])
		}
	}
}

func TestParseShowinfoTimes_Empty(t *testing.T) {
	if times := parseShowinfoTimes("no matches here"); len(times) != 0 {
		t.Errorf("Expected no timestamps, got %v", times)
	}
}

func TestIsNoAudioOutput(t *testing.T) {
	cases := []struct {
		out  string
		want bool
	}{
		{"Output file does not contain any stream", true},
		{"Stream map '0:a' matches no streams.", true},
		{"error: No Audio track found", true},
		{"generic failure", false},
	}
	for _, c := range cases {
		if got := isNoAudioOutput(c.out); got != c.want {
			t.Errorf("isNoAudioOutput(%q) = %v, want %v", c.out, got, c.want)
		}
	}
}
