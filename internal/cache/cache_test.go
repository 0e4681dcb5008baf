package cache

import (
	"testing"

	"github.com/romsan-app/romsan/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func TestGenerateKey(t *testing.T) {
	Convey("GenerateKey", t, func() {
		Convey("Is deterministic", func() {
			So(GenerateKey("zelda", "search"), ShouldEqual, GenerateKey("zelda", "search"))
		})

		Convey("Ignores case and spacing of the value", func() {
			So(GenerateKey("Super Game", "search"), ShouldEqual, GenerateKey("supergame", "search"))
		})

		Convey("Separates scopes", func() {
			So(GenerateKey("zelda", "search"), ShouldNotEqual, GenerateKey("zelda", "rom"))
		})
	})
}

func TestReadWrite(t *testing.T) {
	Convey("Read/Write", t, func() {
		type payload struct {
			Title string `json:"title"`
			Count int    `json:"count"`
		}

		key := GenerateKey("round-trip", "test")

		Convey("A written value reads back", func() {
			So(Write(key, payload{Title: "Super Game", Count: 3}), ShouldBeNil)

			var got payload
			So(Read(key, &got), ShouldBeTrue)
			So(got.Title, ShouldEqual, "Super Game")
			So(got.Count, ShouldEqual, 3)
		})

		Convey("A missing key reads as absent", func() {
			var got payload
			So(Read(GenerateKey("never-written", "test"), &got), ShouldBeFalse)
		})

		Convey("Delete removes the entry", func() {
			So(Write(key, payload{Title: "gone"}), ShouldBeNil)
			Delete(key)

			var got payload
			So(Read(key, &got), ShouldBeFalse)
		})
	})
}
