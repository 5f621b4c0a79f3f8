package discovery

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestServerTXTRoundTrip(t *testing.T) {
	info := Info{Name: "Substation 4", APIVersion: "3.2", Scheme: "https", Path: "/mp"}

	strs := TXTRecordsToStrings(EncodeServerTXT(info))
	got, err := DecodeServerTXT(StringsToTXTRecords(strs))
	if err != nil {
		t.Fatalf("DecodeServerTXT failed: %v", err)
	}
	if got != info {
		t.Errorf("round trip: got %+v, want %+v", got, info)
	}
}

func TestDecodeServerTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
	}{
		{"missing api", TXTRecordMap{TXTKeyName: "x"}},
		{"empty api", TXTRecordMap{TXTKeyAPI: ""}},
		{"bad scheme", TXTRecordMap{TXTKeyAPI: "1", TXTKeyScheme: "ftp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeServerTXT(tt.txt); !errors.Is(err, ErrInvalidTXT) {
				t.Errorf("DecodeServerTXT() = %v, want ErrInvalidTXT", err)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"api=1.0", "flag", "path=/a=b", ""})
	if txt["api"] != "1.0" || txt["path"] != "/a=b" {
		t.Errorf("got %v", txt)
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag: got %q, %v", v, ok)
	}
	if len(txt) != 3 {
		t.Errorf("len = %d, want 3", len(txt))
	}
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		srv  Server
		want string
	}{
		{Server{Host: "mp.local.", Port: 8080}, "http://mp.local.:8080"},
		{Server{Host: "mp.local.", Port: 443, Addresses: []string{"10.0.0.2"}, Info: Info{Scheme: "https", Path: "/mp"}}, "https://10.0.0.2:443/mp"},
		{Server{Port: 80, Addresses: []string{"fe80::1"}}, "http://[fe80::1]:80"},
	}
	for _, tt := range tests {
		if got := tt.srv.URL(); got != tt.want {
			t.Errorf("URL() = %q, want %q", got, tt.want)
		}
	}
}

func TestAggregateMergesAndRemoves(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	updates := make(chan update)
	out := make(chan *Server, 4)
	done := make(chan struct{})
	go func() {
		aggregate(ctx, updates, out)
		close(done)
	}()

	srv := func(instance, addr, name string) *Server {
		return &Server{InstanceName: instance, Port: 8080, Addresses: []string{addr}, Info: Info{APIVersion: "3", Name: name}}
	}

	updates <- update{server: srv("station-a", "10.0.0.1", "")}
	updates <- update{server: srv("station-a", "10.0.0.2", "")}
	updates <- update{server: srv("station-a", "10.0.0.1", ""), removed: true}
	updates <- update{server: srv("station-c", "10.0.0.9", ""), removed: true}
	updates <- update{server: srv("station-a", "10.0.0.2", ""), removed: true}
	updates <- update{server: srv("station-a", "10.0.0.5", "")}
	updates <- update{server: srv("station-b", "10.0.0.4", "B")}
	close(updates)
	<-done

	if len(out) != 3 {
		t.Fatalf("emitted %d servers, want 3", len(out))
	}
	for _, want := range []string{"10.0.0.1", "10.0.0.5"} {
		a := <-out
		if a.InstanceName != "station-a" {
			t.Fatalf("server = %q, want station-a", a.InstanceName)
		}
		if len(a.Addresses) != 1 || a.Addresses[0] != want {
			t.Errorf("station-a addresses = %v, want [%s]", a.Addresses, want)
		}
	}
	b := <-out
	if b.Name != "B" || b.APIVersion != "3" {
		t.Errorf("station-b info = %+v", b.Info)
	}
}

func TestAddressHelpers(t *testing.T) {
	got := mergeAddresses([]string{"a", "b"}, []string{"b", "c"})
	if len(got) != 3 || got[2] != "c" {
		t.Errorf("mergeAddresses = %v", got)
	}
	got = removeAddresses([]string{"a", "b", "c"}, []string{"b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("removeAddresses = %v", got)
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("station"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateInstanceName(""); err == nil {
		t.Error("empty name accepted")
	}
	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name: got %v", err)
	}
}
