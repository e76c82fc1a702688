package remote

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/yaegashi/iotops/domain/model"
)

type fakeExecutor struct {
	commands []string
	err      error
}

func (f *fakeExecutor) Run(_ context.Context, host, user, command string) ([]byte, error) {
	f.commands = append(f.commands, user+"@"+host+" "+command)
	if f.err != nil {
		return []byte("permission denied"), f.err
	}
	return nil, nil
}

func TestMkdirCommand(t *testing.T) {
	cases := map[string]string{
		"/volume1/docker/iot/mosquitto-data": "mkdir -p '/volume1/docker/iot/mosquitto-data'",
		"/srv/it's here":                     `mkdir -p '/srv/it'\''s here'`,
	}
	for in, want := range cases {
		if got := MkdirCommand(in); got != want {
			t.Errorf("MkdirCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRsyncArgs(t *testing.T) {
	got := RsyncArgs("assets/mosquitto", "nas.local", "admin", "/volume1/iot/mosquitto-config")
	want := []string{"--rsync-path", "/bin/rsync", "-av", "--delete", "assets/mosquitto/", "admin@nas.local:/volume1/iot/mosquitto-config/"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RsyncArgs = %v, want %v", got, want)
	}
	got = RsyncArgs("assets/mosquitto/", "nas.local", "", "/x/")
	if got[4] != "assets/mosquitto/" || got[5] != "nas.local:/x/" {
		t.Errorf("trailing slashes not normalized: %v", got)
	}
}

func TestApplier(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExecutor{}
	var ran []string
	p := &Provisioner{SSH: ex, Local: func(_ context.Context, name string, args ...string) ([]byte, error) {
		ran = append(ran, name)
		ran = append(ran, args...)
		return []byte("sending incremental file list\nmosquitto.conf\n"), nil
	}}
	a := &Applier{Provisioner: p}

	dir := &model.Resource{ID: "dir", Kind: model.KindRemoteDir, Spec: &model.RemoteDirSpec{Host: "nas", User: "admin", Path: "/iot/mosquitto-config"}}
	attrs, err := a.Apply(ctx, dir, nil)
	if err != nil {
		t.Fatalf("Apply dir: %v", err)
	}
	if attrs["path"] != "/iot/mosquitto-config" {
		t.Errorf("attrs = %v", attrs)
	}
	if want := []string{"admin@nas mkdir -p '/iot/mosquitto-config'"}; !reflect.DeepEqual(ex.commands, want) {
		t.Errorf("commands = %v", ex.commands)
	}

	sync := &model.Resource{ID: "sync", Kind: model.KindRemoteSync, Spec: &model.RemoteSyncSpec{Host: "nas", User: "admin", Local: "assets/mosquitto", Remote: "/iot/mosquitto-config"}}
	if _, err := a.Apply(ctx, sync, nil); err != nil {
		t.Fatalf("Apply sync: %v", err)
	}
	if len(ran) == 0 || ran[0] != "rsync" || ran[len(ran)-1] != "admin@nas:/iot/mosquitto-config/" {
		t.Errorf("rsync invocation = %v", ran)
	}
}

func TestProvisioner_ErrorsWrapRemoteExec(t *testing.T) {
	ctx := context.Background()
	p := &Provisioner{
		SSH: &fakeExecutor{err: errors.New("exit status 1")},
		Local: func(context.Context, string, ...string) ([]byte, error) {
			return []byte("rsync: connection unexpectedly closed"), errors.New("exit status 12")
		},
	}
	if err := p.EnsureDir(ctx, "nas", "admin", "/x"); !errors.Is(err, model.ErrRemoteExec) {
		t.Errorf("EnsureDir error = %v, want ErrRemoteExec", err)
	}
	if err := p.Mirror(ctx, "a", "nas", "admin", "/x"); !errors.Is(err, model.ErrRemoteExec) {
		t.Errorf("Mirror error = %v, want ErrRemoteExec", err)
	}
}
