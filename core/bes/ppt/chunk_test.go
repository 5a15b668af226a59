package ppt

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("chunk", func() {
	It("writes header with seven hex digits", func() {
		buf := &bytes.Buffer{}
		Expect(WriteChunk(buf, Data, []byte("show version;"))).To(Succeed())
		Expect(buf.String()).To(Equal("000000ddshow version;"))
	})

	It("writes message end", func() {
		buf := &bytes.Buffer{}
		Expect(WriteEnd(buf)).To(Succeed())
		Expect(buf.String()).To(Equal("0000000d"))
	})

	It("reads header", func() {
		n, t, err := ReadChunkHeader(strings.NewReader("0000014xstatus=PPT_EXIT_NOW;"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(20))
		Expect(t).To(Equal(Extension))
	})

	DescribeTable("malformed header",
		func(header string) {
			_, _, err := ReadChunkHeader(strings.NewReader(header))
			Expect(err).To(HaveOccurred())
		},
		Entry("not hex", "00000zzd"),
		Entry("unknown type", "0000000q"),
		Entry("short", "0000"),
	)

	It("parses extensions", func() {
		Expect(ParseExtensions("status=error; count=2;flag;")).To(Equal(map[string]string{
			"status": "error",
			"count":  "2",
			"flag":   "",
		}))
	})

	It("formats status first", func() {
		Expect(FormatExtensions(map[string]string{StatusKey: StatusExitNow})).To(Equal("status=PPT_EXIT_NOW;"))
		Expect(FormatExtensions(map[string]string{"flag": "", StatusKey: "error"})).To(Equal("status=error;flag;"))
	})

	It("splits large writes", func() {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)
		data := bytes.Repeat([]byte("a"), WriteChunkSize+10)
		n, err := w.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(len(data)))
		Expect(w.Close()).To(Succeed())

		size, t, err := ReadChunkHeader(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(Data))
		Expect(size).To(Equal(WriteChunkSize))
		buf.Next(size)
		size, _, _ = ReadChunkHeader(buf)
		Expect(size).To(Equal(10))
		buf.Next(size)
		Expect(buf.String()).To(Equal("0000000d"))

		_, err = w.Write([]byte("x"))
		Expect(err).To(HaveOccurred())
	})
})
