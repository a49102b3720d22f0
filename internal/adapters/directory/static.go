package directory

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Static is a directory read from a YAML file, used offline and in tests
type Static struct {
	feeds   []domain.Feed
	systems []domain.SharingSystem
	routes  []domain.Route
}

type staticDoc struct {
	Feeds []struct {
		ID          int64  `yaml:"feed_id"`
		Code        string `yaml:"feed_code"`
		Name        string `yaml:"feed_name"`
		NetworkName string `yaml:"feed_network_name"`
	} `yaml:"feeds"`
	Systems []struct {
		ID   int64  `yaml:"system_id"`
		Name string `yaml:"name"`
	} `yaml:"sharing_systems"`
	Routes []struct {
		GlobalRouteID int64  `yaml:"global_route_id"`
		FeedID        int64  `yaml:"feed_id"`
		ShortName     string `yaml:"route_short_name"`
		LongName      string `yaml:"route_long_name"`
	} `yaml:"routes"`
}

// LoadStatic reads a static directory file
func LoadStatic(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeConfiguration, "open directory file"), path)
	}
	defer f.Close()
	return DecodeStatic(f)
}

// DecodeStatic parses the static directory YAML
func DecodeStatic(r io.Reader) (*Static, error) {
	var doc staticDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, perr.Wrap(err, perr.ErrorCodeConfiguration, "decode directory yaml")
	}
	s := &Static{}
	for _, f := range doc.Feeds {
		s.feeds = append(s.feeds, domain.Feed{ID: f.ID, Code: f.Code, Name: f.Name, NetworkName: f.NetworkName})
	}
	for _, y := range doc.Systems {
		s.systems = append(s.systems, domain.SharingSystem{ID: y.ID, Name: y.Name})
	}
	for _, r := range doc.Routes {
		s.routes = append(s.routes, domain.Route{GlobalRouteID: r.GlobalRouteID, FeedID: r.FeedID, ShortName: r.ShortName, LongName: r.LongName})
	}
	return s, nil
}

// ListFeeds implements Lister
func (s *Static) ListFeeds(context.Context, string) ([]domain.Feed, string, bool, error) {
	return slices.Clone(s.feeds), "", false, nil
}

// ListSharingSystems implements Lister
func (s *Static) ListSharingSystems(context.Context, string) ([]domain.SharingSystem, string, bool, error) {
	return slices.Clone(s.systems), "", false, nil
}

// ListRoutes implements Lister
func (s *Static) ListRoutes(context.Context, string) ([]domain.Route, string, bool, error) {
	return slices.Clone(s.routes), "", false, nil
}
