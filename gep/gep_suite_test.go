package gep_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"testing"
)

func init() {
	RegisterFailHandler(Fail)
}

func Test(t *testing.T) {
	RunSpecs(t, "Gene Expression Programming")
}
