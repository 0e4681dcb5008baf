package version

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		Convey("Should treat equal versions as equal", func() {
			result, err := Compare("1.2.3", "1.2.3")
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 0)
		})

		Convey("Should compare components as integers, not strings", func() {
			result, err := Compare("1.10.0", "1.9.0")
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 1)
		})

		Convey("Should treat missing components as zero", func() {
			result, err := Compare("1.2", "1.2.0")
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 0)

			result, err = Compare("1.2.1", "1.2")
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 1)
		})

		Convey("Should accept a v prefix", func() {
			result, err := Compare("v2.0.0", "1.9.9")
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 1)
		})

		Convey("Should reject non-numeric components", func() {
			_, err := Compare("1.beta.0", "1.0.0")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestIsNewer(t *testing.T) {
	Convey("IsNewer", t, func() {
		Convey("Should never report a version newer than itself", func() {
			So(IsNewer("1.0.0", "1.0.0"), ShouldBeFalse)
		})

		Convey("Should order versions component-wise", func() {
			So(IsNewer("1.10.0", "1.9.0"), ShouldBeTrue)
			So(IsNewer("1.9.0", "1.10.0"), ShouldBeFalse)
			So(IsNewer("2.0.0", "1.99.99"), ShouldBeTrue)
		})

		Convey("Should report false on unparseable input", func() {
			So(IsNewer("abc", "1.0.0"), ShouldBeFalse)
			So(IsNewer("1.0.0", "abc"), ShouldBeFalse)
		})
	})
}
