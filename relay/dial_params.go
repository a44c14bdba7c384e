package relay

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sonirico/eventer"
)

type (
	// DialParams are resolved before every dial, so headers such as auth
	// tokens can rotate between reconnections.
	DialParams struct {
		URL    url.URL
		Header http.Header
	}

	DialParamsGetter func(ctx context.Context) (DialParams, error)

	DialParamsRepo struct {
		logger eventer.Logger
		getter DialParamsGetter
	}
)

func (r DialParamsRepo) Get(ctx context.Context) (params DialParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch dial params: %s", err)
	}
	return
}

func NewDialParamsRepo(logger eventer.Logger, getter DialParamsGetter) DialParamsRepo {
	return DialParamsRepo{getter: getter, logger: logger}
}

// StaticDialParams always dials the same URL with the same headers.
func StaticDialParams(params DialParams) DialParamsGetter {
	return func(context.Context) (DialParams, error) {
		return DialParams{URL: params.URL, Header: params.Header.Clone()}, nil
	}
}
