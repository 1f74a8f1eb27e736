package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/sitecfg/descriptor"
)

type CLISuite struct {
	suite.Suite
	dir  string
	logs bytes.Buffer
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.logs.Reset()
	s.T().Setenv("LOG_LEVEL", "error")
	s.T().Setenv("LOG_COLORED", "false")
}

func (s *CLISuite) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"sitecfg"}, args...), &out, &s.logs)
	return out.String(), err
}

func (s *CLISuite) writeFile(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *CLISuite) TestShowDefaultsToJSON() {
	out, err := s.run("show")
	s.Require().NoError(err)
	s.JSONEq(`{"i18n":{"locales":["en","mn"],"defaultLocale":"en"},"experimental":{"appDir":true}}`, out)
}

func (s *CLISuite) TestShowFormats() {
	out, err := s.run("show", "--format", "yaml")
	s.Require().NoError(err)
	s.Contains(out, "defaultLocale: en")

	out, err = s.run("show", "-f", "toml")
	s.Require().NoError(err)
	s.Contains(out, `defaultLocale = "en"`)

	_, err = s.run("show", "--format", "ini")
	s.ErrorIs(err, descriptor.ErrUnknownFormat)
}

func (s *CLISuite) TestShowFormatFromEnvironment() {
	s.T().Setenv("SITECFG_FORMAT", "yaml")

	out, err := s.run("show")
	s.Require().NoError(err)
	s.Contains(out, "appDir: true")
}

func (s *CLISuite) TestShowFromFile() {
	path := s.writeFile("site.yaml", "i18n:\n  locales: [mn]\n  defaultLocale: mn\n")

	out, err := s.run("show", "--file", path)
	s.Require().NoError(err)
	s.JSONEq(`{"i18n":{"locales":["mn"],"defaultLocale":"mn"}}`, out)
}

func (s *CLISuite) TestValidate() {
	good := s.writeFile("good.json", `{"i18n":{"locales":["en","mn"],"defaultLocale":"en"}}`)
	bad := s.writeFile("bad.toml", "[i18n]\nlocales = [\"en\", \"mn\"]\ndefaultLocale = \"fr\"\n")

	out, err := s.run("validate", good)
	s.Require().NoError(err)
	s.Equal(good+": ok\n", out)

	out, err = s.run("validate", good, bad)
	s.ErrorIs(err, descriptor.ErrUnknownDefaultLocale)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	s.Require().Len(lines, 2)
	s.Equal(good+": ok", lines[0])
	s.True(strings.HasPrefix(lines[1], bad+": "))

	_, err = s.run("validate")
	s.Error(err)
}

func (s *CLISuite) TestCheckEnglish() {
	out, err := s.run("check")
	s.Require().NoError(err)

	s.Contains(out, "2 supported locales: en, mn")
	s.Contains(out, "Default locale: en")
	s.Contains(out, "Experimental appDir: enabled")
	s.Contains(out, "Descriptor is immutable")
	s.Contains(out, "Descriptor conforms")
}

func (s *CLISuite) TestCheckMongolian() {
	out, err := s.run("check", "--lang", "mn")
	s.Require().NoError(err)

	s.Contains(out, "2 дэмжигдсэн хэл: en, mn")
	s.Contains(out, "Туршилтын appDir: идэвхтэй")
}

func (s *CLISuite) TestCheckFileWithoutMessages() {
	path := s.writeFile("site.json", `{"i18n":{"locales":["de","mn"],"defaultLocale":"de"},"experimental":{"appDir":false}}`)

	out, err := s.run("check", "--file", path)
	s.Require().NoError(err)
	s.Contains(out, "2 supported locales: de, mn")
	s.Contains(out, "Experimental appDir: disabled")
}

func (s *CLISuite) TestCheckNonCanonicalLocales() {
	path := s.writeFile("site.json", `{"i18n":{"locales":["EN","MN"],"defaultLocale":"mn"}}`)

	out, err := s.run("check", "--file", path)
	s.Require().NoError(err)
	s.Contains(out, "2 дэмжигдсэн хэл: EN, MN")
	s.Contains(out, "Тохиргоо шаардлага хангаж байна")
}

func (s *CLISuite) TestFailureLoggedWithConfiguredLogger() {
	_, err := s.run("show", "--format", "ini")
	s.Require().ErrorIs(err, descriptor.ErrUnknownFormat)

	logs := s.logs.String()
	s.Contains(logs, "sitecfg failed")
	s.Contains(logs, "unknown descriptor format")
	s.NotContains(logs, "\x1b[")
}

func (s *CLISuite) TestLogLevelFromEnvironment() {
	path := s.writeFile("site.json", `{"i18n":{"locales":["en"],"defaultLocale":"en"}}`)

	_, err := s.run("show", "--file", path)
	s.Require().NoError(err)
	s.NotContains(s.logs.String(), "using descriptor file")

	s.T().Setenv("LOG_LEVEL", "debug")
	s.logs.Reset()
	_, err = s.run("show", "--file", path)
	s.Require().NoError(err)
	s.Contains(s.logs.String(), "using descriptor file")
}

func (s *CLISuite) TestExport() {
	out := filepath.Join(s.dir, "site.toml")

	_, err := s.run("export", "--out", out)
	s.Require().NoError(err)

	d, err := descriptor.LoadFile(out)
	s.Require().NoError(err)
	s.True(descriptor.Load().Equal(d))

	_, err = s.run("export")
	s.Error(err)
}

func (s *CLISuite) TestWatchStopsWithContext() {
	path := s.writeFile("site.json", `{"i18n":{"locales":["en"],"defaultLocale":"en"}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err := run(ctx, []string{"sitecfg", "watch", "--debounce", "50ms", path}, &out, &s.logs)
	s.Require().NoError(err)
	s.True(strings.HasSuffix(strings.TrimSpace(out.String()), ": ok"))

	_, err = s.run("watch")
	s.Error(err)
}

func (s *CLISuite) TestWatchServesMetrics() {
	path := s.writeFile("site.json", `{"i18n":{"locales":["en"],"defaultLocale":"en"}}`)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	addr := ln.Addr().String()
	s.Require().NoError(ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- run(ctx, []string{"sitecfg", "watch", "--metrics-addr", addr, path}, &out, io.Discard)
	}()

	var body string
	s.Eventually(func() bool {
		resp, getErr := http.Get("http://" + addr + "/metrics")
		if getErr != nil {
			return false
		}
		defer resp.Body.Close()
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return false
		}
		body = string(raw)
		return true
	}, 3*time.Second, 50*time.Millisecond)

	s.Contains(body, `sitecfg_validations_total{result="ok"} 1`)
	s.Contains(body, "sitecfg_descriptor_valid 1")

	cancel()
	s.Require().NoError(<-done)
}

func (s *CLISuite) TestVersion() {
	out, err := s.run("--version")
	s.Require().NoError(err)
	s.Contains(out, "sitecfg version")
}
