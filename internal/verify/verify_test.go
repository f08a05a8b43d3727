package verify

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nao1215/portvapt/internal/model"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap -p 1-1024 -oX - 192.0.2.10">
  <host>
    <status state="up"/>
    <ports>
      <port protocol="tcp" portid="22"><state state="open"/><service name="ssh"/></port>
      <port protocol="tcp" portid="25"><state state="filtered"/><service name="smtp"/></port>
      <port protocol="tcp" portid="80"><state state="open"/><service name="http"/></port>
      <port protocol="udp" portid="53"><state state="open"/><service name="domain"/></port>
      <port protocol="tcp" portid="8080"><state state="open"/><service name="http-proxy"/></port>
    </ports>
  </host>
</nmaprun>`

type fakeRunner struct {
	out  []byte
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func TestParseOpenPorts(t *testing.T) {
	t.Parallel()

	t.Run("keeps open tcp ports", func(t *testing.T) {
		t.Parallel()

		got, err := ParseOpenPorts([]byte(sampleXML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []uint16{22, 80, 8080}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ParseOpenPorts = %v, want %v", got, want)
		}
	})

	t.Run("no hosts", func(t *testing.T) {
		t.Parallel()

		got, err := ParseOpenPorts([]byte(`<nmaprun></nmaprun>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("ParseOpenPorts = %v, want empty", got)
		}
	})

	t.Run("invalid XML", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseOpenPorts([]byte("Starting Nmap 7.94")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid port id", func(t *testing.T) {
		t.Parallel()

		doc := `<nmaprun><host><ports><port protocol="tcp" portid="70000"><state state="open"/></port></ports></host></nmaprun>`
		if _, err := ParseOpenPorts([]byte(doc)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestDiff(t *testing.T) {
	t.Parallel()

	onlyA, onlyB := Diff([]uint16{443, 22, 80, 22}, []uint16{8080, 80, 22})
	if !reflect.DeepEqual(onlyA, []uint16{443}) {
		t.Errorf("onlyA = %v, want [443]", onlyA)
	}
	if !reflect.DeepEqual(onlyB, []uint16{8080}) {
		t.Errorf("onlyB = %v, want [8080]", onlyB)
	}

	onlyA, onlyB = Diff(nil, nil)
	if len(onlyA) != 0 || len(onlyB) != 0 || onlyA == nil || onlyB == nil {
		t.Errorf("Diff(nil, nil) = %v, %v, want empty non-nil", onlyA, onlyB)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	r := model.PortRange{Start: 1, End: 1024}

	t.Run("reports differences within range", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{out: []byte(sampleXML)}
		v := New(WithRunner(runner))

		got, err := v.Verify(context.Background(), "192.0.2.10", r, []uint16{80, 22, 443})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runner.name != DefaultTool {
			t.Errorf("tool = %q, want nmap", runner.name)
		}
		wantArgs := []string{"-p", "1-1024", "-oX", "-", "192.0.2.10"}
		if !reflect.DeepEqual(runner.args, wantArgs) {
			t.Errorf("args = %v, want %v", runner.args, wantArgs)
		}
		if !reflect.DeepEqual(got.OnlyOurs, []uint16{443}) {
			t.Errorf("OnlyOurs = %v, want [443]", got.OnlyOurs)
		}
		// 8080 is outside the scanned range and must not count.
		if len(got.OnlyReference) != 0 {
			t.Errorf("OnlyReference = %v, want empty", got.OnlyReference)
		}
		if got.Matches() {
			t.Error("Matches() = true, want false")
		}
	})

	t.Run("matching sets", func(t *testing.T) {
		t.Parallel()

		v := New(WithRunner(&fakeRunner{out: []byte(sampleXML)}))
		got, err := v.Verify(context.Background(), "192.0.2.10", r, []uint16{22, 80})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Matches() {
			t.Errorf("Matches() = false: %+v", got)
		}
	})

	t.Run("runner failure is recorded", func(t *testing.T) {
		t.Parallel()

		v := New(WithRunner(&fakeRunner{err: ErrToolUnavailable}))
		got, err := v.Verify(context.Background(), "192.0.2.10", r, []uint16{22})
		if !errors.Is(err, ErrToolUnavailable) {
			t.Fatalf("error = %v, want ErrToolUnavailable", err)
		}
		if got == nil || got.Err == "" {
			t.Fatalf("Verification should carry the error: %+v", got)
		}
		if got.Matches() {
			t.Error("failed verification must not match")
		}
	})

	t.Run("unparsable output is recorded", func(t *testing.T) {
		t.Parallel()

		v := New(WithRunner(&fakeRunner{out: []byte("not xml")}))
		got, err := v.Verify(context.Background(), "192.0.2.10", r, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if got.Err == "" {
			t.Error("Verification should carry the error")
		}
	})
}

func TestExecRunnerMissingTool(t *testing.T) {
	t.Parallel()

	_, err := ExecRunner{}.Run(context.Background(), "portvapt-no-such-scanner")
	if !errors.Is(err, ErrToolUnavailable) {
		t.Errorf("error = %v, want ErrToolUnavailable", err)
	}
}
