package display

const vertex = `
#version 420

in  vec3 vertPos;
in  vec2 vertTexCoord;
out vec2 fragTexCoord;

void main() {
    fragTexCoord = vertTexCoord;
    gl_Position  = vec4(vertPos, 1);
}
`

const fragment = `
#version 420

// [0] is the background color, [1] the foreground color.
uniform vec4 palette[2];

layout (binding = 0) uniform sampler2D pixels;

in  vec2 fragTexCoord;
out vec4 outputColor;

void main() {
    float lit = step(0.5, texture(pixels, fragTexCoord).r);
    outputColor = mix(palette[0], palette[1], lit);
}
`
