package bestest

import (
	"fmt"
	"strings"
	"time"
)

// Exception renders a BESException element.
func Exception(typ, msg, location string) string {
	return fmt.Sprintf("<BESException><Type>%s</Type><Message>%s</Message><Location>%s</Location></BESException>", typ, msg, location)
}

// ResponseDoc wraps elements into a show reply document.
func ResponseDoc(root string, elements ...string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		"<" + root + "><response>" + strings.Join(elements, "") + "</response></" + root + ">")
}

// ErrorDoc renders a reply carrying exceptions.
func ErrorDoc(exceptions ...string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?><response>` + strings.Join(exceptions, "") + "</response>")
}

// Dataset renders a dataset element. Children are rendered dataset
// elements.
func Dataset(name string, size int64, lastModified time.Time, collection, data bool, children ...string) string {
	return fmt.Sprintf(`<dataset thredds_collection="%t" isData="%t"><name>%s</name><size>%d</size>`+
		`<lastmodified><date>%s</date><time>%s</time></lastmodified>%s</dataset>`,
		collection, data, name, size,
		lastModified.UTC().Format("2006-01-02"), lastModified.UTC().Format("15:04:05"),
		strings.Join(children, ""))
}
