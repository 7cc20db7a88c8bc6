package geo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/nearhelp/nearhelp-api/schema"
)

var (
	ErrNoGeoInfoFound = fmt.Errorf("no geo information found")
)

const resolveTimeout = 5 * time.Second

// LocationResolver - interface for resolving a human readable address
type LocationResolver interface {
	ResolveAddress(ctx context.Context, loc schema.Location) (string, error)
}

type MultipleResolverErrors struct {
	errors []error
}

func (e *MultipleResolverErrors) Error() string {
	errorStrings := make([]string, len(e.errors))
	for i, err := range e.errors {
		errorStrings[i] = fmt.Sprintf("#%d: %s", i, err.Error())
	}
	return strings.Join(errorStrings, "\n")
}

func NewMultipleResolverErrors(errors []error) *MultipleResolverErrors {
	return &MultipleResolverErrors{
		errors: errors,
	}
}

// geocoder is the part of the google maps client the resolver uses
type geocoder interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type GeocodingResolver struct {
	client   geocoder
	language string
}

func NewGeocodingResolver(client *maps.Client, language string) *GeocodingResolver {
	if language == "" {
		language = "en"
	}
	return &GeocodingResolver{
		client:   client,
		language: language,
	}
}

func (g *GeocodingResolver) ResolveAddress(ctx context.Context, loc schema.Location) (string, error) {
	if loc.Address != "" {
		return loc.Address, nil
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	geos, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{
			Lat: loc.Latitude,
			Lng: loc.Longitude,
		},
		Language: g.language,
	})
	if nil != err {
		return "", err
	}

	for _, r := range geos {
		if r.FormattedAddress != "" {
			return r.FormattedAddress, nil
		}
	}

	return "", ErrNoGeoInfoFound
}

// MultipleLocationResolver asks every resolver in order and returns the
// first address found
type MultipleLocationResolver struct {
	resolvers []LocationResolver
}

func NewMultipleLocationResolver(resolvers ...LocationResolver) *MultipleLocationResolver {
	return &MultipleLocationResolver{
		resolvers: resolvers,
	}
}

func (r *MultipleLocationResolver) ResolveAddress(ctx context.Context, loc schema.Location) (string, error) {
	var errors []error
	for _, resolver := range r.resolvers {
		address, err := resolver.ResolveAddress(ctx, loc)
		if err != nil {
			errors = append(errors, err)
		} else {
			return address, nil
		}
	}

	return "", NewMultipleResolverErrors(errors)
}
