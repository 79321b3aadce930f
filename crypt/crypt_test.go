package crypt_test

import (
	"crypto/rand"
	"crypto/rsa"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/crypt"
)

var _ = Describe("symmetric passphrase mode", func() {
	algos := []crypt.Algorithm{
		crypt.AES128, crypt.AES192, crypt.AES256,
		crypt.Twofish128, crypt.Twofish256,
		crypt.Blowfish, crypt.CAST5, crypt.ThreeDES,
	}

	for _, a := range algos {
		algo := a
		It("round-trips a payload through "+algo.String(), func() {
			pass := crypt.NewPassphrase("correct horse battery staple")
			p := pass.Deploy()

			framed, e := crypt.EncodeFramed(p, algo, []byte("the archive entry's clear bytes"))
			Expect(e).To(BeNil())

			out, e := crypt.DecodeFramed(p, framed)
			Expect(e).To(BeNil())
			Expect(string(out)).To(Equal("the archive entry's clear bytes"))

			pass.Undeploy()
		})
	}

	It("encodes an empty payload as zero-length without expansion", func() {
		pass := crypt.NewPassphrase("pw")
		framed, e := crypt.EncodeFramed(pass.Deploy(), crypt.AES256, []byte{})
		Expect(e).To(BeNil())
		Expect(framed).To(BeEmpty())
	})

	It("rejects a ciphertext whose authentication tag was tampered with", func() {
		pass := crypt.NewPassphrase("pw")
		p := pass.Deploy()

		framed, e := crypt.EncodeFramed(p, crypt.Blowfish, []byte("some data"))
		Expect(e).To(BeNil())

		framed[len(framed)-1] ^= 0xFF

		_, e = crypt.DecodeFramed(p, framed)
		Expect(e).ToNot(BeNil())
	})

	It("fails to decode under the wrong passphrase", func() {
		framed, e := crypt.EncodeFramed(crypt.NewPassphrase("right").Deploy(), crypt.AES256, []byte("secret"))
		Expect(e).To(BeNil())

		_, e = crypt.DecodeFramed(crypt.NewPassphrase("wrong").Deploy(), framed)
		Expect(e).ToNot(BeNil())
	})
})

var _ = Describe("asymmetric RSA-wrapped session key mode", func() {
	It("wraps and unwraps a session key, and the key decrypts the payload", func() {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		Expect(err).ToNot(HaveOccurred())

		sessionKey, e := crypt.NewSessionKey(crypt.AES256)
		Expect(e).To(BeNil())

		wrapped, e := crypt.WrapKeyRSA(&priv.PublicKey, sessionKey)
		Expect(e).To(BeNil())

		unwrapped, e := crypt.UnwrapKeyRSA(priv, wrapped)
		Expect(e).To(BeNil())
		Expect(unwrapped).To(Equal(sessionKey))

		framed, e := crypt.EncodeSessionKey(crypt.AES256, sessionKey, []byte("bulk payload"))
		Expect(e).To(BeNil())

		out, e := crypt.DecodeSessionKey(unwrapped, framed)
		Expect(e).To(BeNil())
		Expect(string(out)).To(Equal("bulk payload"))
	})
})
