package multiboot

import "encoding/binary"

// Builder assembles a multiboot2 information block. It is used by hosted
// boot loaders and tests that need to hand the kernel a synthetic machine.
type Builder struct {
	tags []byte
}

// AddMemoryMap appends a memory map tag with the supplied regions.
func (b *Builder) AddMemoryMap(regions []MemoryMapEntry) *Builder {
	contents := make([]byte, mmapHeaderSize+mmapEntrySize*len(regions))
	binary.LittleEndian.PutUint32(contents[0:], mmapEntrySize)
	for i, region := range regions {
		entry := contents[mmapHeaderSize+i*mmapEntrySize:]
		binary.LittleEndian.PutUint64(entry[0:], region.PhysAddress)
		binary.LittleEndian.PutUint64(entry[8:], region.Length)
		binary.LittleEndian.PutUint32(entry[16:], uint32(region.Type))
	}
	return b.addTag(tagMemoryMap, contents)
}

// AddBootLoaderName appends a NUL-terminated boot loader name tag.
func (b *Builder) AddBootLoaderName(name string) *Builder {
	return b.addTag(tagBootLoaderName, append([]byte(name), 0))
}

// AddCmdLine appends a NUL-terminated command line tag.
func (b *Builder) AddCmdLine(cmdLine string) *Builder {
	return b.addTag(tagBootCmdLine, append([]byte(cmdLine), 0))
}

func (b *Builder) addTag(tag tagType, contents []byte) *Builder {
	var hdr [tagHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(tag))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(tagHeaderSize+len(contents)))
	b.tags = append(b.tags, hdr[:]...)
	b.tags = append(b.tags, contents...)
	for len(b.tags)%8 != 0 {
		b.tags = append(b.tags, 0)
	}
	return b
}

// Bytes returns the encoded information block, terminated by an end tag.
func (b *Builder) Bytes() []byte {
	out := make([]byte, infoHeaderSize, infoHeaderSize+len(b.tags)+tagHeaderSize)
	out = append(out, b.tags...)
	out = append(out, 0, 0, 0, 0, tagHeaderSize, 0, 0, 0)
	binary.LittleEndian.PutUint32(out[0:], uint32(len(out)))
	return out
}

// EncodeMemoryMap returns an information block that only carries a memory
// map tag with the supplied regions.
func EncodeMemoryMap(regions []MemoryMapEntry) []byte {
	return new(Builder).AddMemoryMap(regions).Bytes()
}
