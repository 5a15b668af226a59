package ppt

import (
	"bytes"
	"io"
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("conn", func() {
	var (
		client     *Conn
		server     *ServerConn
		clientSide net.Conn
		serverSide net.Conn
		serverErr  chan error
	)

	BeforeEach(func() {
		clientSide, serverSide = net.Pipe()
		client = NewConn(clientSide)
		server = NewServerConn(serverSide)
		serverErr = make(chan error, 1)
	})
	AfterEach(func() {
		clientSide.Close()
		serverSide.Close()
	})

	serve := func(fn func() error) {
		go func() {
			defer GinkgoRecover()
			serverErr <- fn()
		}()
	}

	It("handshakes", func() {
		serve(server.Accept)
		Expect(client.Handshake()).To(Succeed())
		Expect(<-serverErr).To(Succeed())
	})

	It("fails handshake on unexpected answer", func() {
		serve(func() error {
			hello := make([]byte, len(ClientTestingConnection))
			_, err := io.ReadFull(serverSide, hello)
			if err != nil {
				return err
			}
			_, err = serverSide.Write([]byte("PPTSERVER_AUTHENTICATE_"))
			return err
		})
		err := client.Handshake()
		Expect(errors.Cause(err)).To(Equal(ErrHandshake))
	})

	Context("after handshake", func() {
		BeforeEach(func() {
			serve(server.Accept)
			Expect(client.Handshake()).To(Succeed())
			Expect(<-serverErr).To(Succeed())
		})

		It("sends command and receives reply", func() {
			serve(func() error {
				cmd, exit, err := server.ReadCommand()
				if err != nil {
					return err
				}
				Expect(cmd).To(Equal("show version;"))
				Expect(exit).To(BeFalse())
				return server.Reply([]byte("<response/>"))
			})
			Expect(client.Send("show version;")).To(Succeed())
			out := &bytes.Buffer{}
			reply, err := client.Receive(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(<-serverErr).To(Succeed())
			Expect(reply.IsError()).To(BeFalse())
			Expect(reply.Len).To(BeEquivalentTo(len("<response/>")))
			Expect(out.String()).To(Equal("<response/>"))
		})

		It("keeps error document out of the writer", func() {
			serve(func() error {
				if _, _, err := server.ReadCommand(); err != nil {
					return err
				}
				return server.ReplyError([]byte("<BESException/>"))
			})
			Expect(client.Send("get dods for d1;")).To(Succeed())
			out := &bytes.Buffer{}
			reply, err := client.Receive(out)
			Expect(err).NotTo(HaveOccurred())
			Expect(<-serverErr).To(Succeed())
			Expect(reply.IsError()).To(BeTrue())
			Expect(string(reply.ErrorDoc)).To(Equal("<BESException/>"))
			Expect(out.Len()).To(BeZero())
		})

		It("refuses second command while awaiting reply", func() {
			serve(func() error {
				_, _, err := server.ReadCommand()
				return err
			})
			Expect(client.Send("show version;")).To(Succeed())
			Expect(<-serverErr).To(Succeed())
			err := client.Send("show version;")
			Expect(errors.Cause(err)).To(Equal(ErrAwaitingReply))
		})

		It("reports sink failure", func() {
			serve(func() error {
				if _, _, err := server.ReadCommand(); err != nil {
					return err
				}
				return server.Reply([]byte("payload"))
			})
			Expect(client.Send("get dods for d1;")).To(Succeed())
			_, err := client.Receive(failingWriter{})
			var sinkErr *SinkError
			Expect(errors.As(err, &sinkErr)).To(BeTrue())
		})

		It("sends exit", func() {
			serve(func() error {
				_, exit, err := server.ReadCommand()
				if err != nil {
					return err
				}
				Expect(exit).To(BeTrue())
				return nil
			})
			Expect(client.Exit()).To(Succeed())
			Expect(<-serverErr).To(Succeed())
		})
	})

	It("refuses receive before send", func() {
		_, err := client.Receive(io.Discard)
		Expect(errors.Cause(err)).To(Equal(ErrNotAwaiting))
	})
})

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }
