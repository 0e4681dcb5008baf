package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/romsan-app/romsan/source"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type volatileSource struct {
	searchErr error
	panics    bool
}

func (volatileSource) ID() string   { return "volatile" }
func (volatileSource) Name() string { return "Volatile" }

func (s volatileSource) Search(context.Context, source.Filters, source.Page) ([]*source.Rom, error) {
	if s.panics {
		panic("index out of range in backend")
	}
	return nil, s.searchErr
}

func (s volatileSource) GetRom(context.Context, string, bool) (mo.Option[*source.Rom], error) {
	return mo.None[*source.Rom](), nil
}

func (s volatileSource) Regions(context.Context) (map[string]string, error) {
	return nil, nil
}

func TestGuard(t *testing.T) {
	ctx := context.Background()

	Convey("Guard", t, func() {
		Convey("Wraps backend errors with the source identity", func() {
			guarded := Guard(volatileSource{searchErr: errors.New("timeout")})

			_, err := guarded.Search(ctx, source.Filters{}, source.Page{})

			var sourceErr *source.Error
			So(errors.As(err, &sourceErr), ShouldBeTrue)
			So(sourceErr.SourceID, ShouldEqual, "volatile")
			So(sourceErr.Op, ShouldEqual, "search")
		})

		Convey("Recovers backend panics into errors", func() {
			guarded := Guard(volatileSource{panics: true})

			_, err := guarded.Search(ctx, source.Filters{}, source.Page{})

			var sourceErr *source.Error
			So(errors.As(err, &sourceErr), ShouldBeTrue)
			So(sourceErr.Error(), ShouldContainSubstring, "panic")
		})

		Convey("Passes successful results through untouched", func() {
			guarded := Guard(volatileSource{})

			roms, err := guarded.Search(ctx, source.Filters{}, source.Page{})
			So(err, ShouldBeNil)
			So(roms, ShouldBeEmpty)
		})
	})
}

func TestGet(t *testing.T) {
	Convey("When trying to get an invalid provider", t, func() {
		_, ok := Get("kek")
		Convey("Then ok should be false", func() {
			So(ok, ShouldBeFalse)
		})
	})
}
