package toon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"true keyword", "true", `"true"`},
		{"Null keyword", "Null", `"Null"`},
		{"integer", "42", `"42"`},
		{"negative integer", "-1", `"-1"`},
		{"float", "1.5", `"1.5"`},
		{"leading zero", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"namespaced class", `App\Models\User`, `"App\\Models\\User"`},
		{"bracket", "a[b", `"a[b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/Models/User.php", "src/Models/User.php"},
		{"method", "__construct", "__construct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	doc := &Document{}
	doc.Field("root", "shop")
	doc.Field("classes", 2)
	files := doc.Table("files", "path", "class", "uses")
	files.Append("src/Order.php", `App\Order`, 3)
	files.Append("src/Cart.php", `App\Cart`, 0)
	doc.Table("dependencies", "class", "dependency")

	want := `root: shop
classes: 2
files[2]{path,class,uses}:
  src/Order.php,"App\\Order",3
  src/Cart.php,"App\\Cart",0
dependencies[0]{class,dependency}:`
	assert.Equal(t, want, Encode(doc))
}

func TestEncodeTypedCells(t *testing.T) {
	t.Parallel()

	doc := &Document{}
	doc.Field("mean", 2.5)
	doc.Field("label", "false")
	rows := doc.Table("rows", "name", "abstract", "count", "score")
	rows.Append("Base", true, 3, 1.0)
	rows.Append("true", false, -2, 0.25)
	rows.Append("7", false, 0, 2.5)

	want := `mean: 2.5
label: "false"
rows[3]{name,abstract,count,score}:
  Base,true,3,1
  "true",false,-2,0.25
  "7",false,0,2.5`
	assert.Equal(t, want, Encode(doc))
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Encode(&Document{}))
}
