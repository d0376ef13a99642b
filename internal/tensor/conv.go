package tensor

// ParamsConv1D describes a 1D convolution over (batch, cIn, lIn) with a
// (cOut, cIn, k) kernel.
type ParamsConv1D struct {
	BSize    int
	LIn      int
	COut     int
	CIn      int
	KSize    int
	Padding  int
	Stride   int
	Dilation int
}

// LOut returns the output length.
func (p ParamsConv1D) LOut() int {
	return (p.LIn+2*p.Padding-p.Dilation*(p.KSize-1)-1)/p.Stride + 1
}

// OutDims returns (batch, cOut, lOut).
func (p ParamsConv1D) OutDims() Shape {
	return Shape{p.BSize, p.COut, p.LOut()}
}

// ParamsConvTranspose1D describes a 1D transposed convolution.
type ParamsConvTranspose1D struct {
	BSize         int
	LIn           int
	COut          int
	CIn           int
	KSize         int
	Padding       int
	OutputPadding int
	Stride        int
	Dilation      int
}

// LOut returns the output length.
func (p ParamsConvTranspose1D) LOut() int {
	return (p.LIn-1)*p.Stride - 2*p.Padding + p.Dilation*(p.KSize-1) + p.OutputPadding + 1
}

// OutDims returns (batch, cOut, lOut).
func (p ParamsConvTranspose1D) OutDims() Shape {
	return Shape{p.BSize, p.COut, p.LOut()}
}

// ParamsConv2D describes a 2D convolution over NCHW input with an
// (cOut, cIn, kH, kW) kernel.
type ParamsConv2D struct {
	BSize    int
	IH       int
	IW       int
	KH       int
	KW       int
	COut     int
	CIn      int
	Padding  int
	Stride   int
	Dilation int
}

// OutH returns the output height.
func (p ParamsConv2D) OutH() int {
	return (p.IH+2*p.Padding-p.Dilation*(p.KH-1)-1)/p.Stride + 1
}

// OutW returns the output width.
func (p ParamsConv2D) OutW() int {
	return (p.IW+2*p.Padding-p.Dilation*(p.KW-1)-1)/p.Stride + 1
}

// OutDims returns (batch, cOut, outH, outW).
func (p ParamsConv2D) OutDims() Shape {
	return Shape{p.BSize, p.COut, p.OutH(), p.OutW()}
}

// ParamsConvTranspose2D describes a 2D transposed convolution.
type ParamsConvTranspose2D struct {
	BSize         int
	IH            int
	IW            int
	KH            int
	KW            int
	COut          int
	CIn           int
	Padding       int
	OutputPadding int
	Stride        int
	Dilation      int
}

// OutH returns the output height.
func (p ParamsConvTranspose2D) OutH() int {
	return (p.IH-1)*p.Stride - 2*p.Padding + p.Dilation*(p.KH-1) + p.OutputPadding + 1
}

// OutW returns the output width.
func (p ParamsConvTranspose2D) OutW() int {
	return (p.IW-1)*p.Stride - 2*p.Padding + p.Dilation*(p.KW-1) + p.OutputPadding + 1
}

// OutDims returns (batch, cOut, outH, outW).
func (p ParamsConvTranspose2D) OutDims() Shape {
	return Shape{p.BSize, p.COut, p.OutH(), p.OutW()}
}
