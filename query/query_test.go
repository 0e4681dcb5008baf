package query

import (
	"testing"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
	viper.Set(key.SearchShowQuerySuggestions, true)
}

func TestRememberAndSuggest(t *testing.T) {
	Convey("Query history", t, func() {
		So(Remember("Chrono Trigger", 1), ShouldBeNil)
		So(Remember("chrono cross", 1), ShouldBeNil)
		So(Remember("chrono cross", 1), ShouldBeNil)

		Convey("SuggestMany ranks popular queries first", func() {
			suggestions := SuggestMany("chrono")
			So(len(suggestions), ShouldBeGreaterThanOrEqualTo, 2)
			So(suggestions[0], ShouldEqual, "chrono cross")
		})

		Convey("Suggest returns the top match", func() {
			top := Suggest("chrono")
			So(top.IsPresent(), ShouldBeTrue)
			So(top.MustGet(), ShouldEqual, "chrono cross")
		})

		Convey("Suggestions are disabled by configuration", func() {
			viper.Set(key.SearchShowQuerySuggestions, false)
			So(SuggestMany("chrono"), ShouldBeEmpty)
			viper.Set(key.SearchShowQuerySuggestions, true)
		})

		Convey("Unmatched input yields nothing", func() {
			So(Suggest("zzzzzz").IsAbsent(), ShouldBeTrue)
		})
	})
}
