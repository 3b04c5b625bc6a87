package browserkit

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ------------------------------------------------------------------------

// Form is a resolved, submittable <form> element found by the Crawler
// façade, along with the default values of its fields as rendered in the
// markup.
type Form struct {
	URI        *URI
	Method     string
	Enctype    string
	Parameters map[string][]string
	FileFields []string // names of <input type="file"> fields, value supplied by the caller
}

// ------------------------------------------------------------------------

// Forms returns every <form> on the page.
func (c *Crawler) Forms() []*Form {
	var forms []*Form

	c.doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		forms = append(forms, formFromSelection(c.base, s))
	})

	return forms
}

// ------------------------------------------------------------------------

// Form locates the form owning the first submit button (<button
// type=submit>, <input type=submit> or <input type=image>) whose text or
// value equals buttonText, per spec 4.C's submitForm contract.
func (c *Crawler) Form(buttonText string) (*Form, error) {
	var found *Form

	c.doc.Find("button, input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isSubmitControl(s) || !submitControlMatches(s, buttonText) {
			return true
		}

		owner := s.Closest("form")
		if owner.Length() == 0 {
			return true
		}

		found = formFromSelection(c.base, owner)

		return false
	})

	if found == nil {
		return nil, invalidArgument(ErrFormNotFound, "submit button %q", buttonText)
	}

	return found, nil
}

// ------------------------------------------------------------------------

func isSubmitControl(s *goquery.Selection) bool {
	tag := goquery.NodeName(s)

	typ, _ := s.Attr("type")
	typ = strings.ToLower(typ)

	if tag == "button" {
		return typ == "" || typ == "submit"
	}

	return tag == "input" && (typ == "submit" || typ == "image")
}

func submitControlMatches(s *goquery.Selection, text string) bool {
	if v, ok := s.Attr("value"); ok && v == text {
		return true
	}

	return strings.TrimSpace(s.Text()) == text
}

// ------------------------------------------------------------------------

func formFromSelection(base *URI, s *goquery.Selection) *Form {
	method := strings.ToUpper(strings.TrimSpace(attrOr(s, "method", "GET")))
	enctype := strings.ToLower(strings.TrimSpace(attrOr(s, "enctype", "application/x-www-form-urlencoded")))

	action := attrOr(s, "action", "")

	uri, err := Resolve(base, action)
	if err != nil {
		uri = base
	}

	params := map[string][]string{}
	var files []string

	s.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}

		tag := goquery.NodeName(field)
		typ := strings.ToLower(attrOr(field, "type", "text"))

		switch {
		case tag == "input" && typ == "file":
			files = append(files, name)

		case tag == "input" && (typ == "checkbox" || typ == "radio"):
			if _, checked := field.Attr("checked"); checked {
				params[name] = append(params[name], attrOr(field, "value", "on"))
			}

		case tag == "input" && (typ == "submit" || typ == "image" || typ == "button" || typ == "reset"):
			// submit controls contribute no value; Browser.Submit sends only
			// these fields plus the caller's values

		case tag == "select":
			field.Find("option").Each(func(_ int, opt *goquery.Selection) {
				if _, selected := opt.Attr("selected"); selected {
					v := attrOr(opt, "value", strings.TrimSpace(opt.Text()))
					params[name] = append(params[name], v)
				}
			})

		case tag == "textarea":
			params[name] = append(params[name], field.Text())

		default:
			params[name] = append(params[name], attrOr(field, "value", ""))
		}
	})

	return &Form{
		URI:        uri,
		Method:     method,
		Enctype:    enctype,
		Parameters: params,
		FileFields: files,
	}
}

// ------------------------------------------------------------------------

func attrOr(s *goquery.Selection, name, fallback string) string {
	if v, ok := s.Attr(name); ok {
		return v
	}

	return fallback
}
