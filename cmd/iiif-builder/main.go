/*
Copyright 2025 The IIIF-Builder Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// iiif-builder polls a preservation activity stream and publishes IIIF
// Presentation v3 manifests to the IIIF cloud service.
package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/uol-library/iiif-builder/builder"
	"github.com/uol-library/iiif-builder/catalogue"
	"github.com/uol-library/iiif-builder/identity"
	"github.com/uol-library/iiif-builder/iiifcs"
	"github.com/uol-library/iiif-builder/preservation"
	"github.com/uol-library/iiif-builder/settings"
	"github.com/uol-library/iiif-builder/sql"
)

type options struct {
	once     bool
	logLevel string
}

func main() {
	o := options{}
	cmd := &cobra.Command{
		Use:   "iiif-builder",
		Short: "Builds IIIF manifests from preservation activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&o.once, "once", false, "Run a single poll cycle and exit.")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", fmt.Sprintf("Log level is one of %v.", logrus.AllLevels))
	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("iiif-builder failed.")
	}
}

func run(o options) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %v", o.logLevel, err)
	}
	logrus.SetLevel(level)

	s := settings.Load()
	if s.PostgresConnection == "" {
		return fmt.Errorf("POSTGRES_CONNECTION must be set")
	}
	if s.PreservationActivityStream == "" {
		return fmt.Errorf("PRESERVATION_ACTIVITY_STREAM must be set")
	}

	config := sql.PostgresConfig{ConnectionString: s.PostgresConnection}
	db, err := config.CreateDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	store, err := sql.NewStore(db, s.ActivityCutoffDate)
	if err != nil {
		return err
	}

	httpClient := newHTTPClient(s)
	preservationClient := preservation.NewClient(httpClient, s)
	coordinator := builder.NewCoordinator(
		s,
		store,
		preservationClient,
		identity.NewClient(httpClient, s),
		catalogue.NewClient(httpClient, s.CatalogueAPIKeyHeader, s.CatalogueAPIKeyValue),
		iiifcs.NewPublisher(httpClient, s),
	)
	reader := builder.NewReader(
		store,
		preservationClient,
		coordinator,
		s.PreservationActivityStream,
		time.Duration(s.ActivityStreamReadInterval)*time.Second,
	)

	stop := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logrus.WithField("signal", sig).Info("Received shutdown signal.")
		close(stop)
	}()

	if o.once {
		return reader.Poll(stop)
	}
	reader.Run(stop)
	return nil
}

// newHTTPClient is the single HTTP client every outbound call shares.
// When the activity stream is a local development server, certificate
// checks are relaxed for requests to localhost only; every other
// backend keeps full verification.
func newHTTPClient(s *settings.Settings) *http.Client {
	client := &http.Client{Timeout: 60 * time.Second}
	if strings.HasPrefix(s.PreservationActivityStream, "https://localhost") {
		client.Transport = &localhostInsecureTransport{
			secure: http.DefaultTransport,
			insecure: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
	return client
}

// localhostInsecureTransport routes requests to localhost through an
// unverified TLS transport and everything else through the default
// one.
type localhostInsecureTransport struct {
	secure   http.RoundTripper
	insecure http.RoundTripper
}

func (t *localhostInsecureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.pick(req.URL.Hostname()).RoundTrip(req)
}

func (t *localhostInsecureTransport) pick(host string) http.RoundTripper {
	if host == "localhost" {
		return t.insecure
	}
	return t.secure
}
