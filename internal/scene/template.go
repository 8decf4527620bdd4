package scene

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"meshbatch/internal/config"
)

// Template holds the constants written into every scene document.
type Template struct {
	Version         string
	Integrator      string
	IntegratorParam string
	IntegratorValue int
	ShapeType       string
	BSDFType        string
	InterfaceIOR    float64
	SolidIOR        float64
	DebrisIOR       float64
}

// TemplateFromConfig copies the [template] section.
func TemplateFromConfig(cfg config.Template) Template {
	return Template{
		Version:         cfg.Version,
		Integrator:      cfg.Integrator,
		IntegratorParam: cfg.IntegratorParam,
		IntegratorValue: cfg.IntegratorValue,
		ShapeType:       cfg.ShapeType,
		BSDFType:        cfg.BSDFType,
		InterfaceIOR:    cfg.InterfaceIOR,
		SolidIOR:        cfg.SolidIOR,
		DebrisIOR:       cfg.DebrisIOR,
	}
}

// IOR returns the interior refractive index configured for role.
func (t Template) IOR(role Role) float64 {
	switch role {
	case RoleSolid:
		return t.SolidIOR
	case RoleDebris:
		return t.DebrisIOR
	default:
		return t.InterfaceIOR
	}
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

// Render writes group as a scene document body. The output depends only on
// the template and the group, so rendering is repeatable byte for byte.
func (t Template) Render(group SceneGroup) []byte {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	fmt.Fprintf(&buf, "<scene version=\"%s\"> \n\n", attrEscaper.Replace(t.Version))
	fmt.Fprintf(&buf, "<integrator type=\"%s\">\n", attrEscaper.Replace(t.Integrator))
	fmt.Fprintf(&buf, "<integer name=\"%s\" value=\"%d\"/>\n", attrEscaper.Replace(t.IntegratorParam), t.IntegratorValue)
	buf.WriteString("</integrator>\n\n")

	if group.Interface != nil {
		t.writeShape(&buf, *group.Interface)
	}
	if group.Solid != nil {
		t.writeShape(&buf, *group.Solid)
	}
	for _, ref := range group.Debris {
		t.writeShape(&buf, ref)
	}

	buf.WriteString("</scene>")
	return buf.Bytes()
}

func (t Template) writeShape(buf *bytes.Buffer, ref MeshFileRef) {
	fmt.Fprintf(buf, "<shape type=\"%s\"> \n", attrEscaper.Replace(t.ShapeType))
	fmt.Fprintf(buf, "<string name=\"filename\" value=\"%s\"/>\n", attrEscaper.Replace(ref.Path))
	fmt.Fprintf(buf, "<bsdf type=\"%s\">\n", attrEscaper.Replace(t.BSDFType))
	fmt.Fprintf(buf, "<float name=\"intIOR\" value=\"%s\"/> </bsdf>\n", FormatDecimal(t.IOR(ref.Role)))
	buf.WriteString("</shape>\n\n")
}

// FormatDecimal formats v as the shortest decimal string that keeps at least
// one fractional digit: 1.333, 1.5, 1.0.
func FormatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Naming builds document file names from a scene index.
type Naming struct {
	Prefix    string
	Extension string
	Width     int
}

// NamingFromConfig copies the naming fields of the [scenes] section.
func NamingFromConfig(cfg config.Scenes) Naming {
	return Naming{Prefix: cfg.OutputPrefix, Extension: cfg.OutputExtension, Width: cfg.IndexWidth}
}

// Name returns the file name for index, e.g. out000003.xml.
func (n Naming) Name(index int) string {
	return fmt.Sprintf("%s%0*d%s", n.Prefix, n.Width, index, n.Extension)
}

// Document is a rendered scene ready to be written.
type Document struct {
	Index  int
	Name   string
	Shapes int
	Body   []byte
}

// Renderer pairs a template with output naming.
type Renderer struct {
	Template Template
	Naming   Naming
}

// Render produces the document for group.
func (r Renderer) Render(group SceneGroup) Document {
	return Document{
		Index:  group.Index,
		Name:   r.Naming.Name(group.Index),
		Shapes: group.ShapeCount(),
		Body:   r.Template.Render(group),
	}
}
